// Package chat orchestrates one consultation turn: safety gates, smalltalk
// and FAQ shortcuts, preference handling, retrieval, and grounded answer
// composition, with best-effort persistence of the transcript.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lantasdev/lantas-rag/internal/compose"
	"github.com/lantasdev/lantas-rag/internal/config"
	"github.com/lantasdev/lantas-rag/internal/retrieval"
	"github.com/lantasdev/lantas-rag/pkg/models"
)

// Store is the slice of the relational store the chat service uses.
type Store interface {
	GetSession(ctx context.Context, id int64) (models.ChatSession, error)
	CreateSession(ctx context.Context, username, title string) (models.ChatSession, error)
	AppendMessage(ctx context.Context, sessionID int64, role, content string) (models.ChatMessage, error)
	RecentMessages(ctx context.Context, sessionID int64, limit int) ([]models.ChatMessage, error)
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// Classifier labels a question with an intent.
type Classifier interface {
	Classify(question string) string
}

// Composer builds the final answer text.
type Composer interface {
	Compose(ctx context.Context, req compose.Request) compose.Result
}

// PrefCache caches session preferences between turns.
type PrefCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Request is one user turn.
type Request struct {
	Question  string `json:"question"`
	Username  string `json:"username,omitempty"`
	SessionID int64  `json:"session_id,omitempty"`
}

// Response is the composed reply for one turn.
type Response struct {
	Answer             string           `json:"answer"`
	Sources            []compose.Source `json:"sources"`
	SessionID          int64            `json:"session_id,omitempty"`
	Intent             string           `json:"intent,omitempty"`
	Tone               string           `json:"tone,omitempty"`
	Mode               string           `json:"mode,omitempty"`
	Category           string           `json:"category,omitempty"`
	SuggestedQuestions []string         `json:"suggested_questions,omitempty"`
	Disclaimer         string           `json:"disclaimer,omitempty"`
	ModelUsed          string           `json:"model_used,omitempty"`
}

// Reply modes.
const (
	ModeAnswer        = "answer"
	ModeFAQ           = "faq"
	ModeSmalltalk     = "smalltalk"
	ModeSafety        = "safety"
	ModePreferenceSet = "preference_set"
	ModeOutOfScope    = "out_of_scope"
	ModeCaseIntake    = "case_intake"
	ModeGuardrail     = "guardrail"
)

// Service answers consultation turns.
type Service struct {
	Store      Store
	Search     retrieval.Engine
	Classifier Classifier
	Composer   Composer
	Prefs      PrefCache

	Chat      config.Chat
	Retrieval config.Retrieval
}

// Ask handles one turn end to end. It never returns an error to the caller;
// degraded paths produce a deterministic reply instead. Sources is always
// non-nil so the wire format stays a JSON array.
func (s *Service) Ask(ctx context.Context, req Request) Response {
	res := s.ask(ctx, req)
	if res.Sources == nil {
		res.Sources = []compose.Source{}
	}
	return res
}

func (s *Service) ask(ctx context.Context, req Request) Response {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{
			Answer:             "Silakan ajukan pertanyaan seputar lalu lintas atau hukum lalu lintas.",
			SessionID:          req.SessionID,
			SuggestedQuestions: []string{"Tanya soal ETLE/tilang", "Tanya soal SIM/STNK", "Tanya soal aturan helm & keselamatan"},
			Disclaimer:         Disclaimer("id"),
		}
	}

	lang := DetectLanguage(question)

	if LooksLikePromptInjection(question) {
		answer := "Aku nggak bisa mengikuti instruksi yang mencoba mengabaikan aturan/sistem atau meminta hal rahasia. " +
			"Kalau kamu tanya soal lalu lintas, aku bantu dengan aman dan sesuai aturan.\n" +
			"Intinya: jelasin pertanyaan lalu lintasnya, aku jawab."
		if lang == "en" {
			answer = "I can't follow requests to bypass system rules or reveal secrets. " +
				"If you ask about traffic rules/safety, I'll help safely.\n" +
				"Bottom line: ask a traffic question and I'll answer."
		}
		return Response{
			Answer:             answer,
			SessionID:          req.SessionID,
			Intent:             models.IntentGeneralTips,
			Tone:               models.ToneFormal,
			Mode:               ModeSafety,
			SuggestedQuestions: SuggestedNextQuestions(models.IntentGeneralTips, question),
			Disclaimer:         Disclaimer(lang),
		}
	}

	if refusal := SafetyRedirect(question, lang); refusal != "" {
		return Response{
			Answer:             refusal,
			SessionID:          req.SessionID,
			Intent:             models.IntentGeneralTips,
			Tone:               models.ToneFormal,
			Mode:               ModeSafety,
			SuggestedQuestions: SuggestedNextQuestions(models.IntentGeneralTips, question),
			Disclaimer:         Disclaimer(lang),
		}
	}

	if kind, ok := MatchSmalltalk(question); ok {
		sess := s.ensureSession(ctx, req.Username, req.SessionID, question)
		prefs := s.applyPrefPatch(ctx, sess.ID, question)
		tone := s.effectiveTone(question, prefs)

		answer := SmalltalkAnswer(kind, lang)
		s.persistTurn(ctx, sess.ID, question, answer)
		return Response{
			Answer:             answer,
			SessionID:          sess.ID,
			Intent:             models.IntentSmalltalk,
			Tone:               tone,
			Mode:               ModeSmalltalk,
			SuggestedQuestions: SuggestedNextQuestions(models.IntentSmalltalk, question),
			Disclaimer:         Disclaimer(lang),
		}
	}

	sess := s.ensureSession(ctx, req.Username, req.SessionID, question)
	patch := ParsePrefPatch(question)
	prefs := s.getPrefs(ctx, sess.ID)
	if patch != (models.SessionPrefs{}) {
		prefs = s.setPrefs(ctx, sess.ID, patch)
	}

	if isPreferenceOnly(question, patch) {
		answer := preferenceAck(prefs.Verbosity, lang)
		s.persistTurn(ctx, sess.ID, question, answer)
		return Response{
			Answer:             answer,
			SessionID:          sess.ID,
			Intent:             models.IntentMeta,
			Tone:               s.effectiveTone(question, prefs),
			Mode:               ModePreferenceSet,
			Category:           "preferences",
			SuggestedQuestions: SuggestedNextQuestions(models.IntentMeta, question),
			Disclaimer:         Disclaimer(lang),
		}
	}

	intent := s.Classifier.Classify(question)
	tone := s.effectiveTone(question, prefs)
	verbosity := ComputeVerbosity(question, intent, prefs)

	if faq, ok := MatchFAQ(question); ok && intent != models.IntentNeedsArticle && IsTrafficRelated(question) {
		answer := faq.Answer(lang)
		disc := Disclaimer(lang)
		if shouldAppendDisclaimer(intent, answer) {
			answer = strings.TrimSpace(answer) + "\n\n" + disc
		}
		s.persistTurn(ctx, sess.ID, question, answer)
		return Response{
			Answer:             answer,
			SessionID:          sess.ID,
			Intent:             intent,
			Tone:               tone,
			Mode:               ModeFAQ,
			Category:           faq.Category,
			SuggestedQuestions: SuggestedNextQuestions(intent, question),
			Disclaimer:         disc,
		}
	}

	if !IsTrafficRelated(question) {
		answer := "Maaf, aku fokus membantu pertanyaan yang masih berkaitan dengan lalu lintas dan hukum lalu lintas di Indonesia. " +
			"Kalau kamu mau, coba tulis ulang pertanyaannya supaya tetap tentang aturan jalan, keselamatan, SIM/STNK, rambu, ETLE, atau kejadian di jalan.\n" +
			"Intinya: ubah pertanyaan ke topik lalu lintas, nanti aku bantu."
		if lang == "en" {
			answer = "Sorry, I can only help with traffic rules/safety in Indonesia. " +
				"Please rephrase your question to be about road rules, safety, license/registration, signs, ETLE, or a road incident.\n" +
				"Bottom line: keep it traffic-related and I'll help."
		}
		disc := Disclaimer(lang)
		answer = strings.TrimSpace(answer) + "\n\n" + disc
		s.persistTurn(ctx, sess.ID, question, answer)
		return Response{
			Answer:             answer,
			SessionID:          sess.ID,
			Intent:             intent,
			Tone:               tone,
			Mode:               ModeOutOfScope,
			SuggestedQuestions: SuggestedNextQuestions(intent, question),
			Disclaimer:         disc,
		}
	}

	if qs := CaseIntakeQuestions(question); len(qs) > 0 &&
		(len(strings.Fields(normalize(question))) <= 6 || intent == models.IntentNeedsArticle) {
		disc := Disclaimer(lang)
		answer := strings.TrimSpace(ClarifyMessage(tone, lang, qs)) + "\n\n" + disc
		s.persistTurn(ctx, sess.ID, question, answer)
		return Response{
			Answer:             answer,
			SessionID:          sess.ID,
			Intent:             intent,
			Tone:               tone,
			Mode:               ModeCaseIntake,
			SuggestedQuestions: SuggestedNextQuestions(intent, question),
			Disclaimer:         disc,
		}
	}

	history, err := s.Store.RecentMessages(ctx, sess.ID, s.Chat.HistoryTurns)
	if err != nil {
		slog.Warn("fetching chat history failed", "session_id", sess.ID, "error", err)
		history = nil
	}

	docs, err := s.Search.Search(ctx, question, s.Retrieval.TopK, s.Retrieval.MinScore)
	if err != nil {
		slog.Warn("retrieval failed, answering without context", "error", err)
		docs = nil
	}

	if intent == models.IntentNeedsArticle && len(docs) == 0 {
		answer := "Aku bisa bantu, tapi aku belum punya konteks pasal/UU yang cukup dari dokumen yang tersedia. " +
			"Biar nggak ngarang, boleh jelasin pelanggarannya apa, kendaraan apa, dan kejadian di mana (mis. jalan kota/tol, ada ETLE atau tidak)?\n" +
			"Intinya: tambah detail dulu, nanti aku bantu cari dasar yang paling relevan."
		if lang == "en" {
			answer = "I can help, but I don't have enough document context to cite a specific article/law without guessing. " +
				"Tell me the exact violation, vehicle type, and where it happened (city road/toll, ETLE camera or not).\n" +
				"Bottom line: share details and I'll map it more accurately."
		}
		disc := Disclaimer(lang)
		answer = strings.TrimSpace(answer) + "\n\n" + disc
		s.persistTurn(ctx, sess.ID, question, answer)
		return Response{
			Answer:             answer,
			SessionID:          sess.ID,
			Intent:             intent,
			Tone:               tone,
			Mode:               ModeGuardrail,
			SuggestedQuestions: SuggestedNextQuestions(intent, question),
			Disclaimer:         disc,
		}
	}

	mode := "normal"
	if ActionHelperMode(question) {
		mode = "action_helper"
	}
	result := s.Composer.Compose(ctx, compose.Request{
		Question:  question,
		Intent:    intent,
		Tone:      tone,
		Language:  lang,
		Verbosity: verbosity,
		Mode:      mode,
		Docs:      docs,
		History:   history,
	})

	answer := result.Answer
	disc := Disclaimer(lang)
	if shouldAppendDisclaimer(intent, answer) {
		answer = strings.TrimSpace(answer) + "\n\n" + disc
	}
	s.persistTurn(ctx, sess.ID, question, answer)

	return Response{
		Answer:             answer,
		Sources:            result.Sources,
		SessionID:          sess.ID,
		Intent:             intent,
		Tone:               tone,
		Mode:               ModeAnswer,
		SuggestedQuestions: SuggestedNextQuestions(intent, question),
		Disclaimer:         disc,
		ModelUsed:          result.ModelUsed,
	}
}

func preferenceAck(verbosity, lang string) string {
	switch verbosity {
	case "short":
		if lang == "en" {
			return "Got it. I'll keep answers short for this session. What traffic question do you have?\n" +
				"Bottom line: ask a traffic question and I'll answer briefly."
		}
		return "Siap. Untuk sesi ini aku jawab singkat ya. Sekarang kamu mau tanya apa soal lalu lintas?\n" +
			"Intinya: tulis pertanyaan lalu lintasnya, nanti aku jawab ringkas."
	case "long":
		if lang == "en" {
			return "Got it. I'll answer in more detail for this session. What traffic question do you have?\n" +
				"Bottom line: ask a traffic question and I'll answer thoroughly."
		}
		return "Siap. Untuk sesi ini aku jawab lebih detail ya. Sekarang kamu mau tanya apa soal lalu lintas?\n" +
			"Intinya: tulis pertanyaan lalu lintasnya, nanti aku jelasin lengkap."
	}
	if lang == "en" {
		return "Okay. I saved your preference for this session. What traffic question do you have?\n" +
			"Bottom line: ask a traffic question and I'll help."
	}
	return "Oke. Preferensi jawaban sudah aku simpan untuk sesi ini. Sekarang kamu mau tanya apa soal lalu lintas?\n" +
		"Intinya: tulis pertanyaan lalu lintasnya, nanti aku bantu."
}

func (s *Service) effectiveTone(question string, prefs models.SessionPrefs) string {
	if prefs.TonePref == models.ToneCasual || prefs.TonePref == models.ToneFormal {
		return prefs.TonePref
	}
	return DetectTone(question)
}

// ensureSession resolves or creates the session for this turn. New guest
// sessions get a random "guest:" username.
func (s *Service) ensureSession(ctx context.Context, username string, sessionID int64, titleSeed string) models.ChatSession {
	if sessionID > 0 {
		if sess, err := s.Store.GetSession(ctx, sessionID); err == nil {
			return sess
		}
	}
	username = strings.TrimSpace(username)
	title := titleSeed
	if username == "" {
		username = "guest:" + uuid.NewString()
		if title == "" {
			title = "Konsultasi"
		}
	}
	if len(title) > 120 {
		title = title[:120]
	}
	sess, err := s.Store.CreateSession(ctx, username, title)
	if err != nil {
		slog.Warn("creating session failed, continuing without persistence", "error", err)
		return models.ChatSession{Username: username, Title: title}
	}
	return sess
}

func (s *Service) applyPrefPatch(ctx context.Context, sessionID int64, question string) models.SessionPrefs {
	prefs := s.getPrefs(ctx, sessionID)
	if patch := ParsePrefPatch(question); patch != (models.SessionPrefs{}) {
		prefs = s.setPrefs(ctx, sessionID, patch)
	}
	return prefs
}

func prefMetaKey(sessionID int64) string  { return fmt.Sprintf("session_pref:%d", sessionID) }
func prefCacheKey(sessionID int64) string { return fmt.Sprintf("pref:%d", sessionID) }

func (s *Service) getPrefs(ctx context.Context, sessionID int64) models.SessionPrefs {
	if sessionID == 0 {
		return models.SessionPrefs{}
	}
	if s.Prefs != nil {
		if v, ok := s.Prefs.Get(prefCacheKey(sessionID)); ok {
			if prefs, ok := v.(models.SessionPrefs); ok {
				return prefs
			}
		}
	}
	var prefs models.SessionPrefs
	raw, err := s.Store.GetMeta(ctx, prefMetaKey(sessionID))
	if err == nil && raw != "" {
		if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
			slog.Warn("malformed session preferences", "session_id", sessionID, "error", err)
			prefs = models.SessionPrefs{}
		}
	}
	if s.Prefs != nil {
		s.Prefs.Set(prefCacheKey(sessionID), prefs)
	}
	return prefs
}

func (s *Service) setPrefs(ctx context.Context, sessionID int64, patch models.SessionPrefs) models.SessionPrefs {
	merged := s.getPrefs(ctx, sessionID)
	if patch.Verbosity != "" {
		merged.Verbosity = patch.Verbosity
	}
	if patch.TonePref != "" {
		merged.TonePref = patch.TonePref
	}
	if sessionID == 0 {
		return merged
	}
	raw, err := json.Marshal(merged)
	if err == nil {
		if err := s.Store.SetMeta(ctx, prefMetaKey(sessionID), string(raw)); err != nil {
			slog.Warn("persisting session preferences failed", "session_id", sessionID, "error", err)
		}
	}
	if s.Prefs != nil {
		s.Prefs.Set(prefCacheKey(sessionID), merged)
	}
	return merged
}

// persistTurn stores the user question and assistant answer. Failures are
// logged; the reply still goes out.
func (s *Service) persistTurn(ctx context.Context, sessionID int64, question, answer string) {
	if sessionID == 0 {
		return
	}
	if _, err := s.Store.AppendMessage(ctx, sessionID, models.RoleUser, question); err != nil {
		slog.Warn("persisting user message failed", "session_id", sessionID, "error", err)
		return
	}
	if _, err := s.Store.AppendMessage(ctx, sessionID, models.RoleAssistant, answer); err != nil {
		slog.Warn("persisting assistant message failed", "session_id", sessionID, "error", err)
	}
}
