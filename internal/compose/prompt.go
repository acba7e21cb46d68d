package compose

import (
	"fmt"
	"strings"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// BuildContext assembles the grounding context for one prompt: extra answer
// rules derived from the request, the recent conversation history, and the
// retrieved document blocks, each capped to MaxDocBlockChars and the whole
// document section to MaxDocContextChars.
func BuildContext(req Request, budgets Budgets) string {
	var parts []string

	var rules []string
	if req.Language == "en" {
		rules = append(rules, "BAHASA_JAWABAN: English")
	} else {
		rules = append(rules, "BAHASA_JAWABAN: Indonesia")
	}
	if req.Verbosity != "" {
		rules = append(rules, "PANJANG_JAWABAN: "+req.Verbosity)
	}
	if req.Mode != "" {
		rules = append(rules, "MODE: "+req.Mode)
	}
	rules = append(rules,
		"SAFETY: jangan mengarang pasal/UU; jika ragu, minta klarifikasi; fokus keselamatan dan kepatuhan.",
		"KONSISTENSI: jawab terstruktur, jelas, tidak menggurui, dan akhiri 1 kalimat ringkasan inti.",
	)
	if req.Mode == "action_helper" {
		rules = append(rules, "FORMAT: jika memberi langkah, gunakan langkah bernomor (1), (2), (3) dan opsi alternatif bila perlu.")
	}
	parts = append(parts, "ATURAN TAMBAHAN:\n"+strings.Join(rules, "\n"))

	if history := HistoryText(req.History, budgets); history != "" {
		parts = append(parts, "RIWAYAT PERCAKAPAN:\n"+history)
	}

	var blocks []string
	total := 0
	for i, d := range req.Docs {
		title := strings.TrimSpace(d.Title)
		if title == "" {
			title = fmt.Sprintf("Dokumen %d", i+1)
		}
		block := Shorten(strings.TrimSpace(fmt.Sprintf("[%d] %s\n%s", i+1, title, strings.TrimSpace(d.Body))), budgets.MaxDocBlockChars)
		if total+len(block) > budgets.MaxDocContextChars {
			break
		}
		blocks = append(blocks, block)
		total += len(block)
	}
	if len(blocks) == 0 {
		parts = append(parts, "KONTEKS DOKUMEN:\nTidak ada konteks dokumen yang relevan ditemukan.")
	} else {
		parts = append(parts, "KONTEKS DOKUMEN:\n"+strings.Join(blocks, "\n\n"))
	}

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// HistoryText renders recent turns (most recent first on input) into
// chronological "User:"/"Asisten:" lines, capping each turn and the whole
// transcript.
func HistoryText(msgs []models.ChatMessage, budgets Budgets) string {
	if len(msgs) == 0 {
		return ""
	}
	var parts []string
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		txt := strings.TrimSpace(m.Content)
		if txt == "" {
			continue
		}
		tag := "Asisten"
		if strings.EqualFold(strings.TrimSpace(m.Role), models.RoleUser) {
			tag = "User"
		}
		parts = append(parts, tag+": "+Shorten(txt, budgets.MaxHistoryTurnChars))
	}
	return Shorten(strings.TrimSpace(strings.Join(parts, "\n")), budgets.MaxHistoryChars)
}

const styleCasual = `
GUNAKAN GAYA BAHASA:
- Bahasa Indonesia santai dan akrab, tapi tetap sopan.
- Boleh pakai kata seperti "kamu", "aja", "nggak", "kok" jika pertanyaan pengguna juga santai.
- JANGAN gunakan kata-kata seperti "bro", "bray", "lu", "loe", atau kata kasar/merendahkan.
- Hindari bercanda berlebihan; tetap fokus menjelaskan aturan dan alasan keselamatan dengan contoh sehari-hari.
`

const styleFormal = `
GUNAKAN GAYA BAHASA:
- Bahasa Indonesia jelas dan cukup formal, mudah dipahami orang awam.
- Gunakan sapaan netral seperti "Anda" atau tanpa sapaan jika tidak perlu.
- JANGAN gunakan kata gaul seperti "bro", "lu", "gue", "wkwk", dan sejenisnya.
- Jawaban boleh hangat dan ramah, tapi tetap terasa rapi dan profesional.
`

func buildPrompt(question, contextText, tone string) string {
	style := styleFormal
	if tone == models.ToneCasual {
		style = styleCasual
	}

	return fmt.Sprintf(`
Kamu adalah asisten yang paham hukum dan keselamatan lalu lintas di Indonesia.

%s

TUJUAN:
- Jawab semua pertanyaan yang masih dalam lingkup lalu lintas dan hukum lalu lintas.
- Jika pertanyaan berkaitan dengan pelanggaran (misalnya tidak pakai helm, ngebut, melanggar rambu):
  - Jelaskan apakah itu pelanggaran menurut konteks.
  - Jika di konteks ada pasal/UU yang relevan, sebutkan secara singkat di dalam kalimat (nama UU dan pasal).
  - Tambahkan juga alasan keselamatan: kenapa aturan itu penting.
- Jika pertanyaan lebih bersifat umum/tips:
  - Fokus pada tips berkendara yang aman dan tertib.

JAWABAN UNTUK PERTANYAAN DEFINISI:
- Jika pertanyaan JELAS meminta pengertian/arti/definisi suatu istilah (misalnya mengandung frasa seperti "apa itu", "yang dimaksud dengan", "arti dari"):
  - Buat jawaban dalam dua paragraf pendek:
    1) Paragraf pertama menjelaskan secara ringkas menurut ketentuan hukum atau rumusan resminya.
    2) Paragraf kedua mengulang dengan bahasa yang sangat sederhana untuk orang awam.
  - JANGAN menulis label khusus seperti "Definisi hukum:" atau "Versi gampangnya:".

PERTANYAAN PENDEK:
- HANYA jika pertanyaan sangat pendek dan benar-benar ambigu (sekitar 1-3 kata tanpa konteks, misalnya "umur?", "gimana?", "boleh nggak?"):
  - Jangan langsung menyebut pasal/UU spesifik.
  - Jelaskan bahwa pertanyaan masih terlalu umum dan minta pengguna memperjelas.
  - Berikan satu contoh pertanyaan yang lebih spesifik.
- Selain kasus ini, JANGAN mengatakan bahwa pertanyaan terlalu umum.

BATASAN TENTANG SUMBER:
- Jangan membuat bagian khusus berjudul "Sumber:".
- Jika perlu menyebut dasar hukum, sebutkan maksimal 1-2 pasal yang paling relevan dan selipkan di dalam kalimat penjelasan.

RINGKASAN AKHIR:
- Setelah menjelaskan pokok-pokok jawaban, AKHIRI jawaban dengan SATU kalimat ringkas yang merangkum inti jawaban.

KONTEKS DOKUMEN:
%s

PERTANYAAN PENGGUNA:
%s

JAWABAN:
`, style, contextText, question)
}
