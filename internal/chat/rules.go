package chat

import (
	"regexp"
	"strings"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

var wsRe = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return wsRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// DetectLanguage guesses "en" or "id" by counting hits from two small marker
// vocabularies. Indonesian wins ties.
func DetectLanguage(text string) string {
	t := normalize(text)
	if t == "" {
		return "id"
	}
	enWords := map[string]struct{}{
		"hello": {}, "hi": {}, "thanks": {}, "please": {}, "car": {}, "motorcycle": {},
		"traffic": {}, "ticket": {}, "license": {}, "accident": {}, "road": {},
	}
	idWords := map[string]struct{}{
		"halo": {}, "hai": {}, "makasih": {}, "terima": {}, "tolong": {}, "motor": {},
		"mobil": {}, "lalu": {}, "lintas": {}, "tilang": {}, "sim": {}, "kecelakaan": {}, "jalan": {},
	}
	var en, id int
	for _, w := range strings.Fields(t) {
		if _, ok := enWords[w]; ok {
			en++
		}
		if _, ok := idWords[w]; ok {
			id++
		}
	}
	if en > id {
		return "en"
	}
	return "id"
}

// DetectTone reads slang markers as the casual register.
func DetectTone(question string) string {
	q := normalize(question)
	slang := []string{"ga", "gak", "gk", "nggak", "ngga", "wkwk", "haha", "hehe", "kok", "aja"}
	for _, s := range slang {
		if strings.Contains(q, s) {
			return models.ToneCasual
		}
	}
	return models.ToneFormal
}

var injectionMarkers = []string{
	"ignore previous", "ignore all", "abaikan instruksi", "abaikan semua",
	"system prompt", "developer message", "bocorkan", "api key", "kunci api",
	"password", "token rahasia", "jailbreak", "bypass",
}

// LooksLikePromptInjection flags attempts to override instructions or
// extract secrets.
func LooksLikePromptInjection(question string) bool {
	q := normalize(question)
	for _, m := range injectionMarkers {
		if strings.Contains(q, m) {
			return true
		}
	}
	return false
}

var illegalEvasionMarkers = []string{
	"cara kabur dari polisi", "cara menghindari tilang", "cara lolos etle",
	"plat palsu", "nomor polisi palsu", "hapus bukti", "manipulasi etle", "nembus razia",
}

// SafetyRedirect returns a refusal for enforcement-evasion requests, or ""
// when the question is fine.
func SafetyRedirect(question, lang string) string {
	q := normalize(question)
	for _, m := range illegalEvasionMarkers {
		if strings.Contains(q, m) {
			if lang == "en" {
				return "I can't help with evading law enforcement or bypassing traffic enforcement. " +
					"If you want, tell me the situation and I can suggest legal, safe options.\n" +
					"Bottom line: I can help you stay safe and compliant, not evade enforcement."
			}
			return "Aku nggak bisa bantu cara menghindari penegakan hukum/tilang atau trik lolos razia. " +
				"Kalau kamu ceritain situasinya, aku bisa bantu opsi yang legal dan aman.\n" +
				"Intinya: aku bantu yang aman dan sesuai aturan, bukan cara mengelabui."
		}
	}
	return ""
}

var trafficKeywords = []string{
	"lalu lintas", "angkutan jalan", "jalan raya", "jalan tol", "helm", "sabuk pengaman",
	"motor", "mobil", "kendaraan", "sim", "stnk", "tilang", "etle", "ngebut", "batas kecepatan",
	"rambu", "marka", "stop line", "zebra cross", "penyeberangan",
	"lampu merah", "lampu kuning", "lampu hijau", "lampu lalu lintas", "traffic light", "apill",
	"polisi lalu lintas", "pengemudi", "penumpang", "berkendara",
	"parkir", "kecelakaan", "tabrakan", "menabrak", "putar balik", "melawan arus", "menyalip", "bahu jalan",
}

var trafficLightRe = regexp.MustCompile(`\blampu\b.*\b(kuning|merah|hijau)\b`)

// IsTrafficRelated gates the answer pipeline to the service's topic.
func IsTrafficRelated(question string) bool {
	q := normalize(question)
	for _, k := range trafficKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return trafficLightRe.MatchString(q)
}

// Smalltalk kinds.
const (
	SmalltalkGreet  = "greet"
	SmalltalkThanks = "thanks"
	SmalltalkLaugh  = "laugh"
)

var greetings = []string{
	"hai", "halo", "hi", "hello", "pagi", "siang", "sore", "malam", "assalamualaikum",
	"permisi", "tes", "test", "cek", "coba", "yow", "yo",
}

var thanksWords = []string{"makasih", "terima kasih", "thanks", "thx", "mantap", "sip", "oke", "ok", "nice", "keren"}

// MatchSmalltalk classifies greetings, thanks, and laughter; it returns
// ("", false) for substantive questions.
func MatchSmalltalk(question string) (string, bool) {
	q := normalize(question)
	if q == "" {
		return "", false
	}
	for _, g := range greetings {
		if q == g || strings.HasPrefix(q, g+" ") {
			return SmalltalkGreet, true
		}
	}
	for _, t := range thanksWords {
		if q == t || strings.Contains(q, t) {
			return SmalltalkThanks, true
		}
	}
	switch q {
	case "wkwk", "haha", "hehe", "lol":
		return SmalltalkLaugh, true
	}
	return "", false
}

// SmalltalkAnswer renders a short reply for the matched kind.
func SmalltalkAnswer(kind, lang string) string {
	if lang == "en" {
		switch kind {
		case SmalltalkThanks:
			return "You're welcome. What traffic/safety topic do you want to ask about?\nBottom line: ask me anything about traffic rules or safe driving."
		case SmalltalkLaugh:
			return "Got it. Want to ask about traffic rules, tickets, or safe driving?\nBottom line: tell me what you're curious about."
		}
		return "Hi. Tell me your question about traffic rules or a driving situation.\nBottom line: share the situation and I'll help."
	}
	switch kind {
	case SmalltalkThanks:
		return "Sama-sama ya. Mau tanya topik apa soal lalu lintas?\nIntinya: sebutin situasinya, aku bantu."
	case SmalltalkLaugh:
		return "Oke. Mau tanya soal aturan, tilang/ETLE, atau tips aman?\nIntinya: bilang aja situasinya."
	}
	return "Hai. Kamu mau tanya soal aturan lalu lintas atau kejadian apa?\nIntinya: ceritain singkat situasinya, biar aku bantu."
}

// FAQRule is a category of common administrative questions answered from a
// canned template instead of the retrieval pipeline.
type FAQRule struct {
	Category string
	Patterns []*regexp.Regexp
	AnswerID string
	AnswerEN string
}

var faqRules = []FAQRule{
	{
		Category: "SIM",
		Patterns: compile(`\bsim\b`, `buat sim`, `perpanjang sim`, `sim mati`, `sim habis`, `sim hilang`),
		AnswerID: "Kalau soal SIM, biasanya ada 3 skenario: bikin baru, perpanjang, atau hilang/rusak.\n" +
			"- Bikin baru: siapkan identitas (KTP), cek syarat usia, ikut ujian teori & praktik sesuai jenis SIM.\n" +
			"- Perpanjang: usahakan sebelum masa berlaku habis; siapkan KTP, SIM lama, dan ikuti prosedur perpanjangan.\n" +
			"- Hilang/rusak: umumnya perlu surat keterangan/laporan sesuai ketentuan layanan, lalu proses penggantian.\n" +
			"Intinya: tentukan dulu kamu mau bikin baru/perpanjang/hilang, nanti aku bisa arahkan langkah yang pas.",
		AnswerEN: "For a driving license, it's usually one of these: new, renewal, or lost/damaged.\n" +
			"- New: prepare ID, meet age requirements, pass theory & practical tests.\n" +
			"- Renewal: renew before expiry; bring required documents.\n" +
			"- Lost/damaged: you may need a report/statement, then apply for replacement.\n" +
			"Bottom line: tell me which case you have, and I'll guide the right steps.",
	},
	{
		Category: "STNK",
		Patterns: compile(`\bstnk\b`, `pajak`, `stnk mati`, `stnk habis`, `perpanjang stnk`),
		AnswerID: "Untuk STNK/pajak kendaraan, biasanya yang perlu kamu pastikan: masa berlaku, status pajak tahunan, dan kalau ada pengesahan.\n" +
			"Kalau kamu jelasin: jenis kendaraan (motor/mobil) dan statusnya (pajak tahunan/5 tahunan), aku bisa bantu langkah-langkahnya.\n" +
			"Intinya: sebutkan motor/mobil + pajak tahunan atau 5 tahunan, biar jawabanku tepat.",
		AnswerEN: "For vehicle registration/tax, the key is the validity period and whether it's annual vs the bigger periodic renewal.\n" +
			"Tell me: motorcycle/car + annual tax or the periodic renewal, and I'll guide the steps.\n" +
			"Bottom line: share vehicle type and renewal type so I can be precise.",
	},
	{
		Category: "Helm & Safety",
		Patterns: compile(`helm`, `tidak pakai helm`, `sabuk pengaman`, `seatbelt`, `pengaman`),
		AnswerID: "Soal keselamatan: helm standar + dipakai dengan benar itu penting banget, begitu juga sabuk pengaman.\n" +
			"Selain urusan aturan, dampak utamanya soal mengurangi risiko cedera kepala/cedera fatal saat kecelakaan.\n" +
			"Intinya: pakai perlindungan yang benar itu bukan cuma biar aman dari tilang, tapi buat nyelametin nyawa.",
		AnswerEN: "Safety-wise: a proper helmet and seatbelt reduce the risk of severe injury.\n" +
			"It's not only about rules, this is about preventing head trauma and fatal injuries.\n" +
			"Bottom line: use correct protection primarily to stay alive, not just to avoid tickets.",
	},
	{
		Category: "Lampu merah & rambu",
		Patterns: compile(`lampu merah`, `rambu`, `melanggar rambu`, `stop line`, `marka`),
		AnswerID: "Kalau soal lampu merah/rambu: prinsipnya ikut sinyal & marka, dan berhenti di garis henti bila ada.\n" +
			"Kalau kamu sebutkan lokasinya (persimpangan besar/kecil) dan situasinya (ramai/sepi, ada kamera ETLE atau nggak), aku bisa bantu analisisnya lebih pas.\n" +
			"Intinya: jelasin konteks lokasi & kondisi biar aku bisa jawab lebih tepat.",
		AnswerEN: "For red lights/signs: follow signals and road markings, and stop at the stop line if present.\n" +
			"If you tell me the intersection type and whether there's an ETLE camera, I can be more precise.\n" +
			"Bottom line: share context so I can answer accurately.",
	},
	{
		Category: "ETLE/Tilang",
		Patterns: compile(`\betle\b`, `tilang`, `surat tilang`, `kena kamera`, `e-tilang`),
		AnswerID: "Kalau ETLE/tilang: biasanya yang penting itu jenis pelanggaran, bukti (foto/video), dan langkah tindak lanjut (konfirmasi/penyelesaian).\n" +
			"Biar aku bantu tepat: itu tilang ETLE atau manual, dan kendaraannya motor atau mobil?\n" +
			"Intinya: sebutkan ETLE/manual + motor/mobil, nanti aku arahkan langkah aman dan tertibnya.",
		AnswerEN: "For tickets/ETLE: key points are violation type, evidence (photo/video), and follow-up steps.\n" +
			"Tell me: ETLE or manual, and motorcycle or car.\n" +
			"Bottom line: share ETLE/manual + vehicle type and I'll guide you properly.",
	},
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// MatchFAQ returns the first rule whose patterns hit the question.
func MatchFAQ(question string) (FAQRule, bool) {
	q := normalize(question)
	for _, rule := range faqRules {
		for _, pat := range rule.Patterns {
			if pat.MatchString(q) {
				return rule, true
			}
		}
	}
	return FAQRule{}, false
}

// Answer picks the rule's reply for the requested language.
func (r FAQRule) Answer(lang string) string {
	if lang == "en" {
		return r.AnswerEN
	}
	return r.AnswerID
}

// Disclaimer is the short scope note appended to legal answers.
func Disclaimer(lang string) string {
	if lang == "en" {
		return "Quick note: this is general information for safety/education; for specific cases, check local signs/rules and consider confirming with authorities."
	}
	return "Catatan singkat: jawaban ini bersifat informasi umum dan edukasi keselamatan; " +
		"untuk kasus spesifik, cek rambu/lokasi setempat dan pertimbangkan konfirmasi ke petugas/instansi terkait."
}

func shouldAppendDisclaimer(intent, answer string) bool {
	return answer == "" || intent == models.IntentNeedsArticle
}

// ComputeVerbosity resolves the answer length: explicit preference first,
// then cues in the question, then intent and question length.
func ComputeVerbosity(question, intent string, prefs models.SessionPrefs) string {
	switch prefs.Verbosity {
	case "short", "normal", "long":
		return prefs.Verbosity
	}
	q := normalize(question)
	if strings.Contains(q, "singkat") || strings.Contains(q, "ringkas") || strings.Contains(q, "pendek") {
		return "short"
	}
	if strings.Contains(q, "detail") || strings.Contains(q, "lengkap") || strings.Contains(q, "panjang") {
		return "long"
	}
	if intent == models.IntentNeedsArticle {
		return "normal"
	}
	if len(strings.Fields(q)) <= 6 {
		return "short"
	}
	return "normal"
}

// ParsePrefPatch extracts preference changes stated in the question.
func ParsePrefPatch(question string) models.SessionPrefs {
	q := normalize(question)
	var patch models.SessionPrefs

	for _, m := range []string{"jawab singkat", "jawaban singkat", "singkat aja", "singkatnya", "ringkas", "pendek"} {
		if strings.Contains(q, m) {
			patch.Verbosity = "short"
			break
		}
	}
	for _, m := range []string{"jawab panjang", "jawaban panjang", "jawaban detail", "detail", "jelasin lengkap", "lengkap"} {
		if strings.Contains(q, m) {
			patch.Verbosity = "long"
			break
		}
	}
	if strings.Contains(q, "santai aja") || strings.Contains(q, "bahasa santai") {
		patch.TonePref = models.ToneCasual
	}
	if strings.Contains(q, "formal aja") || strings.Contains(q, "bahasa formal") {
		patch.TonePref = models.ToneFormal
	}
	return patch
}

var (
	nonWordRe  = regexp.MustCompile(`[^\w\s]`)
	prefNoise  = regexp.MustCompile(`\b(aku|saya|mau|ingin|tolong|pls|please|dong|ya|yah|deh|jawab|jawaban|singkat|ringkas|pendek|detail|panjang|lengkap|aja|saja|kok|nih|gimana|bagaimana)\b`)
)

// isPreferenceOnly reports whether the question carries nothing beyond a
// preference change.
func isPreferenceOnly(question string, patch models.SessionPrefs) bool {
	if patch == (models.SessionPrefs{}) {
		return false
	}
	if IsTrafficRelated(question) {
		return false
	}
	if _, ok := MatchSmalltalk(question); ok {
		return false
	}
	cleaned := nonWordRe.ReplaceAllString(normalize(question), " ")
	cleaned = prefNoise.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(wsRe.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return true
	}
	return len(strings.Fields(cleaned)) <= 2
}

// ActionHelperMode reports whether the user asks for procedural steps.
func ActionHelperMode(question string) bool {
	q := normalize(question)
	triggers := []string{
		"apa yang harus saya lakukan", "apa yg harus saya lakukan",
		"langkah", "step", "cara", "tahapan", "prosedur", "gimana urutannya",
	}
	for _, t := range triggers {
		if strings.Contains(q, t) {
			return true
		}
	}
	return false
}

// CaseIntakeQuestions lists up to three clarifying questions for vague
// incident reports.
func CaseIntakeQuestions(question string) []string {
	q := normalize(question)
	var qs []string
	if _, smalltalk := MatchSmalltalk(q); len(strings.Fields(q)) <= 3 && !smalltalk {
		qs = append(qs, "Maksudnya kamu nanya soal apa persisnya, dan situasinya gimana?")
	}
	if strings.Contains(q, "tilang") || strings.Contains(q, "etle") {
		if !strings.Contains(q, "etle") && !strings.Contains(q, "manual") {
			qs = append(qs, "Itu tilang manual atau ETLE?")
		}
		if !strings.Contains(q, "motor") && !strings.Contains(q, "mobil") {
			qs = append(qs, "Kendaraannya motor atau mobil?")
		}
	}
	if strings.Contains(q, "kecelakaan") || strings.Contains(q, "tabrakan") || strings.Contains(q, "menabrak") {
		if !strings.Contains(q, "korban") && !strings.Contains(q, "luka") && !strings.Contains(q, "meninggal") {
			qs = append(qs, "Ada korban luka atau hanya kerusakan kendaraan?")
		}
		if !strings.Contains(q, "tol") && strings.Contains(q, "jalan") {
			qs = append(qs, "Kejadiannya di jalan kota atau tol?")
		}
	}
	if strings.Contains(q, "parkir") {
		if !strings.Contains(q, "rambu") && !strings.Contains(q, "bahu") {
			qs = append(qs, "Parkirnya di bahu jalan atau area parkir resmi, dan ada rambu larangan parkir nggak?")
		}
	}
	return dedupLimit(qs, 3)
}

// ClarifyMessage renders the case-intake questions as one reply.
func ClarifyMessage(tone, lang string, qs []string) string {
	if lang == "en" {
		if len(qs) > 0 {
			lines := []string{"To answer accurately, I need a bit more context:"}
			for _, q := range qs {
				lines = append(lines, "- "+q)
			}
			lines = append(lines, "Bottom line: reply with those details and I'll help.")
			return strings.Join(lines, "\n")
		}
		return "Could you share a bit more context so I can answer precisely?\nBottom line: add details and I'll help."
	}
	if len(qs) > 0 {
		intro := "Agar jawabannya tepat, saya perlu memastikan beberapa hal:"
		if tone == models.ToneCasual {
			intro = "Biar aku jawab tepat, aku tanya sedikit ya:"
		}
		lines := []string{intro}
		for _, q := range qs {
			lines = append(lines, "- "+q)
		}
		lines = append(lines, "Intinya: jawab poin di atas, nanti aku bantu jawab paling pas.")
		return strings.Join(lines, "\n")
	}
	return "Boleh jelasin sedikit konteksnya? Biar aku jawab lebih pas.\nIntinya: tambah detail, nanti aku bantu."
}

// SuggestedNextQuestions offers up to three follow-ups tied to the topic.
func SuggestedNextQuestions(intent, question string) []string {
	q := normalize(question)
	var out []string
	if strings.Contains(q, "tilang") || strings.Contains(q, "etle") {
		out = append(out, "Itu ETLE atau tilang manual?", "Pelanggarannya apa persisnya?", "Mau langkah-langkah penyelesaiannya?")
	}
	if strings.Contains(q, "parkir") {
		out = append(out, "Lokasinya ada rambu larangan parkir?", "Parkirnya di bahu jalan atau area parkir resmi?", "Mau tips parkir aman?")
	}
	if strings.Contains(q, "kecelakaan") || strings.Contains(q, "tabrakan") {
		out = append(out, "Ada korban luka atau hanya kerusakan?", "Butuh langkah-langkah setelah kecelakaan?", "Mau susun kronologi singkat?")
	}
	if _, ok := MatchSmalltalk(q); ok {
		out = append(out, "Tanya soal ETLE/tilang", "Tanya soal SIM/STNK", "Tanya soal aturan helm & keselamatan")
	}
	if intent == models.IntentNeedsArticle {
		out = append(out, "Mau versi ringkas pasal terkait?", "Mau jelasin keselamatan di balik aturannya?", "Kejadiannya motor atau mobil?")
	}
	if len(out) == 0 {
		out = []string{"Motor atau mobil?", "Kejadiannya di mana?", "Mau jawaban singkat atau detail?"}
	}
	return dedupLimit(out, 3)
}

func dedupLimit(in []string, n int) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, x := range in {
		if x == "" {
			continue
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
		if len(out) == n {
			break
		}
	}
	return out
}
