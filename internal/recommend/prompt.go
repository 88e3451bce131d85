package recommend

import (
	"strings"
)

type Task string

const (
	TaskAnalyze   Task = "analyze"
	TaskSummarize Task = "summarize"
	TaskRecommend Task = "recommend"
)

// ParseTask maps request input to a task; anything unknown is analyze.
func ParseTask(s string) Task {
	switch Task(strings.ToLower(strings.TrimSpace(s))) {
	case TaskSummarize:
		return TaskSummarize
	case TaskRecommend:
		return TaskRecommend
	default:
		return TaskAnalyze
	}
}

type Prompt struct {
	System string
	User   string
}

const EvidenceLabel = "Berdasarkan Ulasan Pengunjung:"

const systemTemplate = `Kamu adalah asisten rekomendasi coffee shop. Jawab dalam Bahasa Indonesia.
Gunakan HANYA data di bawah ini. Jangan mengarang nama tempat, ulasan, fasilitas, atau fakta lain.

{{context}}

ATURAN WAJIB:
1. Rekomendasikan hanya coffee shop yang punya ulasan pengunjung yang menyebut preferensi pengguna ({{keywords}}).
2. Jika tidak ada ulasan yang cocok untuk sebuah coffee shop, JANGAN rekomendasikan coffee shop itu.
3. Kutipan ulasan harus VERBATIM (kata per kata) dari data, lengkap dengan nama pengulas dan ratingnya. Dilarang memparafrase.
4. Dilarang memakai tabel, heading markdown (#), atau format lain selain format di bawah.

FORMAT JAWABAN (ikuti persis):
1. **Nama Coffee Shop**
   - Rating: 4.5/5.0
   - Alamat: alamat lengkap
   - Google Maps: tautan dari data
   - ` + EvidenceLabel + ` "kutipan ulasan persis" - Nama Pengulas (Rating 5/5)
   - ` + EvidenceLabel + ` "kutipan kedua bila ada" - Nama Pengulas (Rating 4/5)

Jika tidak ada coffee shop yang cocok, jawab: "` + NoMatchMessage + `"`

const (
	recommendTemplate = `Preferensi pengguna: "{{text}}"
Kata kunci: {{keywords}}

Rekomendasikan 1 sampai 3 coffee shop yang paling sesuai. Jika hanya ada 1 atau 2 yang benar-benar cocok, tulis itu saja; jangan menambah coffee shop agar genap 3.
Untuk setiap coffee shop sertakan 1-2 baris "` + EvidenceLabel + `" yang mengutip ulasan yang menyebut kata kunci di atas.`

	summarizeTemplate = `Preferensi pengguna: "{{text}}"
Kata kunci: {{keywords}}

Ringkas secara singkat coffee shop yang cocok dengan preferensi ini (1-2 kalimat per tempat, dengan kata-katamu sendiri), lalu sertakan bukti berupa baris "` + EvidenceLabel + `" yang mengutip ulasan secara verbatim.`

	analyzeTemplate = `Preferensi pengguna: "{{text}}"
Kata kunci: {{keywords}}

Analisis singkat: coffee shop mana yang ulasannya menyebut kata kunci di atas? Jawab ringkas mengikuti format.`
)

// BuildPrompt fills the templates for the given task.
func BuildPrompt(task Task, context string, kws []string, userText string) Prompt {
	kwList := strings.Join(kws, ", ")
	if kwList == "" {
		kwList = "-"
	}
	sys := strings.NewReplacer("{{context}}", context, "{{keywords}}", kwList).Replace(systemTemplate)

	tmpl := analyzeTemplate
	switch task {
	case TaskRecommend:
		tmpl = recommendTemplate
	case TaskSummarize:
		tmpl = summarizeTemplate
	}
	user := strings.NewReplacer("{{text}}", strings.TrimSpace(userText), "{{keywords}}", kwList).Replace(tmpl)
	return Prompt{System: sys, User: user}
}
