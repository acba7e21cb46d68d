package compose

import (
	"strings"

	"github.com/lantasdev/lantas-rag/pkg/models"
)

// fallbackAnswer synthesizes prose without the generative provider. Answers
// that need an article citation quote the top-ranked document; general tips
// summarize it. Without any document the insufficient-basis message is
// returned in the requested tone.
func fallbackAnswer(req Request) string {
	if len(req.Docs) == 0 {
		return insufficientBasis(req.Tone, req.Language)
	}

	top := req.Docs[0]
	excerpt := topExcerpt(top.Document)
	basis := legalBasis(top.Document)

	if req.Language == "en" {
		return fallbackEnglish(req.Intent, excerpt, basis)
	}

	casual := req.Tone == models.ToneCasual
	var b strings.Builder
	if req.Intent == models.IntentNeedsArticle {
		if casual {
			b.WriteString("Oke, ini dasar hukumnya ya. ")
		} else {
			b.WriteString("Berikut dasar hukum yang relevan dengan pertanyaan Anda. ")
		}
		if basis != "" {
			b.WriteString("Menurut " + basis + ": ")
		}
		b.WriteString(excerpt)
		if casual {
			b.WriteString("\nIntinya: ikuti ketentuan itu biar kamu aman dan nggak kena tilang.")
		} else {
			b.WriteString("\nIntinya: patuhi ketentuan tersebut demi keselamatan dan kepatuhan Anda di jalan.")
		}
		return b.String()
	}

	if casual {
		b.WriteString("Sebagai panduan umum: ")
	} else {
		b.WriteString("Sebagai panduan umum, ")
	}
	b.WriteString(excerpt)
	if casual {
		b.WriteString("\nIntinya: utamakan keselamatan dan tertib berkendara ya.")
	} else {
		b.WriteString("\nIntinya: utamakan keselamatan dan kepatuhan saat berkendara.")
	}
	return b.String()
}

func fallbackEnglish(intent, excerpt, basis string) string {
	var b strings.Builder
	if intent == models.IntentNeedsArticle {
		b.WriteString("Here is the relevant legal basis. ")
		if basis != "" {
			b.WriteString("According to " + basis + ": ")
		}
		b.WriteString(excerpt)
		b.WriteString("\nBottom line: follow that provision to stay safe and compliant.")
		return b.String()
	}
	b.WriteString("As general guidance: ")
	b.WriteString(excerpt)
	b.WriteString("\nBottom line: prioritize safety and compliance on the road.")
	return b.String()
}

func insufficientBasis(tone, lang string) string {
	if lang == "en" {
		return "I don't have enough document basis to answer this precisely without guessing. " +
			"Please share the exact situation, vehicle type, and where it happened.\n" +
			"Bottom line: add details and I'll map it more accurately."
	}
	if tone == models.ToneCasual {
		return "Aku belum punya dasar dokumen yang cukup buat jawab ini secara spesifik, dan aku nggak mau ngarang. " +
			"Boleh jelasin situasinya, kendaraannya apa, dan kejadiannya di mana?\n" +
			"Intinya: tambah detail dulu, nanti aku bantu cari dasar yang paling pas."
	}
	return "Mohon maaf, saya belum memiliki dasar dokumen yang cukup untuk menjawab pertanyaan ini secara spesifik. " +
		"Silakan jelaskan situasinya, jenis kendaraan, dan lokasi kejadian.\n" +
		"Intinya: tambahkan detail agar jawaban bisa lebih tepat."
}

func topExcerpt(d models.Document) string {
	for _, s := range []string{d.LegalText, d.Explanation, d.Body} {
		if t := strings.TrimSpace(s); t != "" {
			return Shorten(t, 420)
		}
	}
	return strings.TrimSpace(d.Title)
}

func legalBasis(d models.Document) string {
	uu := strings.TrimSpace(d.UU)
	pasal := strings.TrimSpace(d.Pasal)
	switch {
	case uu != "" && pasal != "":
		return uu + " " + pasal
	case uu != "":
		return uu
	case pasal != "":
		return pasal
	default:
		return ""
	}
}
