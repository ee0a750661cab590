// Package flow implements the intake conversation state machine. Given the
// stored state for a sender and one inbound message it decides which messages
// to send, which backend calls to make, and what the next state is.
package flow

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brainytots/whatsapp-connect/internal/backend"
	"github.com/brainytots/whatsapp-connect/internal/observability/metrics"
	"github.com/brainytots/whatsapp-connect/internal/state"
	"github.com/brainytots/whatsapp-connect/pkg/logging"
)

// Messenger is the outbound delivery client the flow depends on.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []string) error
	SendLink(ctx context.Context, to, body, url string) error
}

// Assessor is the remote assessment backend the flow depends on.
type Assessor interface {
	StartSession(ctx context.Context, req backend.StartSessionRequest) (*backend.StartSessionResponse, error)
	QueryAssistant(ctx context.Context, req backend.QueryRequest) (*backend.AssistantMessage, error)
	CloseSession(ctx context.Context, sessionID string) (*backend.CloseSessionResponse, error)
	FetchResults(ctx context.Context, sessionID string) (backend.Results, error)
}

// Store persists per-sender conversation state between inbound events.
type Store interface {
	Get(ctx context.Context, id string) (*state.Conversation, error)
	Set(ctx context.Context, id string, conv *state.Conversation) error
	Delete(ctx context.Context, id string) error
}

// Config wires the handler's collaborators. Store, Backend and Messenger are
// required.
type Config struct {
	Store          Store
	Backend        Assessor
	Messenger      Messenger
	ResultsBaseURL string
	Logger         *logging.Logger
	Metrics        *metrics.ConversationMetrics
}

// Handler routes one inbound message through the state machine. It holds no
// per-conversation state itself; everything lives in the Store, so any
// replica can process any sender.
type Handler struct {
	store          Store
	backend        Assessor
	messenger      Messenger
	resultsBaseURL string
	logger         *logging.Logger
	metrics        *metrics.ConversationMetrics
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		store:          cfg.Store,
		backend:        cfg.Backend,
		messenger:      meteredMessenger{inner: cfg.Messenger, metrics: cfg.Metrics},
		resultsBaseURL: strings.TrimRight(cfg.ResultsBaseURL, "/"),
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
}

// HandleMessage runs one transition for the sender identified by phone.
// Input validation failures and collaborator failures are absorbed here (the
// user is re-prompted or told about the error); only store failures
// propagate, and only when the store runs in strict mode.
func (h *Handler) HandleMessage(ctx context.Context, phone, text string) error {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if matchesPhrase(normalized, restartPhrases) {
		return h.restart(ctx, phone)
	}
	if matchesPhrase(normalized, helpPhrases) {
		return h.sendHelp(ctx, phone)
	}

	conv, err := h.getOrCreate(ctx, phone)
	if err != nil {
		return err
	}

	switch conv.Step {
	case state.StepNew:
		return h.handleNewUser(ctx, phone, conv)
	case state.StepLanguageSelect:
		return h.handleLanguageSelection(ctx, phone, text, conv)
	case state.StepAskName:
		return h.handleNameInput(ctx, phone, text, conv)
	case state.StepAskDOB:
		return h.handleDOBInput(ctx, phone, text, conv)
	case state.StepAskGestational:
		return h.handleGestationalQuestion(ctx, phone, text, conv)
	case state.StepAskGestationalWeeks:
		return h.handleGestationalWeeks(ctx, phone, text, conv)
	case state.StepAssessment:
		return h.handleAssessmentAnswer(ctx, phone, text, conv)
	case state.StepCompleted:
		return h.handleCompletedSession(ctx, phone, conv)
	case state.StepAbandoned:
		// An abandoned record is stale by definition; begin again.
		return h.restart(ctx, phone)
	default:
		h.logger.Warn("conversation in unknown step, restarting", "phone", phone, "step", conv.Step)
		return h.restart(ctx, phone)
	}
}

func (h *Handler) handleNewUser(ctx context.Context, phone string, conv *state.Conversation) error {
	welcome := render(welcomeMessages, defaultLocale, nil)
	if err := h.messenger.SendButtons(ctx, phone, welcome, languageButtons); err != nil {
		h.logger.Error("failed to send welcome", "phone", phone, "error", err)
		return nil
	}
	conv.Step = state.StepLanguageSelect
	return h.save(ctx, phone, conv)
}

func (h *Handler) handleLanguageSelection(ctx context.Context, phone, text string, conv *state.Conversation) error {
	locale := matchLocale(text)
	conv.Collected.Locale = locale

	ask := render(askNameMessages, locale, nil)
	if err := h.messenger.SendText(ctx, phone, ask); err != nil {
		h.logger.Error("failed to ask child name", "phone", phone, "error", err)
		return nil
	}
	conv.Step = state.StepAskName
	return h.save(ctx, phone, conv)
}

func (h *Handler) handleNameInput(ctx context.Context, phone, text string, conv *state.Conversation) error {
	locale := h.locale(conv)
	name := strings.TrimSpace(text)
	if name == "" {
		// Loop in place until the user sends something usable.
		return h.sendTextQuiet(ctx, phone, render(askNameMessages, locale, nil))
	}
	conv.Collected.ChildName = name

	ask := render(askDOBMessages, locale, map[string]string{"name": name})
	if err := h.messenger.SendText(ctx, phone, ask); err != nil {
		h.logger.Error("failed to ask date of birth", "phone", phone, "error", err)
		return nil
	}
	conv.Step = state.StepAskDOB
	return h.save(ctx, phone, conv)
}

func (h *Handler) handleDOBInput(ctx context.Context, phone, text string, conv *state.Conversation) error {
	locale := h.locale(conv)

	dob, ok := parseDOB(text)
	if !ok {
		return h.sendTextQuiet(ctx, phone, render(invalidDOBMessages, locale, nil))
	}
	conv.Collected.DOB = dob

	ask := render(askGestationalMessages, locale, map[string]string{"name": conv.Collected.ChildName})
	if err := h.messenger.SendButtons(ctx, phone, ask, yesNoButtons); err != nil {
		h.logger.Error("failed to ask premature question", "phone", phone, "error", err)
		return nil
	}
	conv.Step = state.StepAskGestational
	return h.save(ctx, phone, conv)
}

func (h *Handler) handleGestationalQuestion(ctx context.Context, phone, text string, conv *state.Conversation) error {
	locale := h.locale(conv)

	if isAffirmative(text) {
		premature := true
		conv.Collected.IsPremature = &premature

		ask := render(askGestationalWeeksMessages, locale, map[string]string{"name": conv.Collected.ChildName})
		if err := h.messenger.SendText(ctx, phone, ask); err != nil {
			h.logger.Error("failed to ask gestational weeks", "phone", phone, "error", err)
			return nil
		}
		conv.Step = state.StepAskGestationalWeeks
		return h.save(ctx, phone, conv)
	}

	premature := false
	conv.Collected.IsPremature = &premature
	conv.Collected.GestationalWeeks = nil
	return h.startAssessment(ctx, phone, conv)
}

func (h *Handler) handleGestationalWeeks(ctx context.Context, phone, text string, conv *state.Conversation) error {
	locale := h.locale(conv)

	weeks, ok := extractGestationalWeeks(text)
	if !ok {
		return h.sendTextQuiet(ctx, phone, render(invalidGestationalWeeksMessages, locale, nil))
	}
	conv.Collected.GestationalWeeks = &weeks
	return h.startAssessment(ctx, phone, conv)
}

// startAssessment opens a backend session, announces the start, fetches the
// first question and persists the new state. The sequence is not
// transactional: a failure mid-way leaves the stored state unchanged and the
// user retries, which may leave an orphaned backend session behind. That is
// an accepted, recoverable inconsistency.
func (h *Handler) startAssessment(ctx context.Context, phone string, conv *state.Conversation) error {
	locale := h.locale(conv)

	session, err := h.backend.StartSession(ctx, backend.StartSessionRequest{
		ChildName:        conv.Collected.ChildName,
		DOB:              conv.Collected.DOB,
		GestationalWeeks: conv.Collected.GestationalWeeks,
		Locale:           locale,
	})
	if err != nil {
		h.logger.Error("failed to start assessment", "phone", phone, "error", err)
		return h.sendGenericError(ctx, phone, locale)
	}
	conv.SessionID = session.SessionID

	starting := render(startingAssessmentMessages, locale, map[string]string{"name": conv.Collected.ChildName})
	if err := h.messenger.SendText(ctx, phone, starting); err != nil {
		h.logger.Error("failed to send starting message", "phone", phone, "error", err)
		return h.sendGenericError(ctx, phone, locale)
	}

	first, err := h.backend.QueryAssistant(ctx, backend.QueryRequest{
		SessionID:          session.SessionID,
		UserMessage:        "Start assessment",
		ConfidenceOverride: "sure",
	})
	if err != nil {
		h.logger.Error("failed to fetch first question", "phone", phone, "error", err)
		return h.sendGenericError(ctx, phone, locale)
	}

	if err := h.sendQuestion(ctx, phone, first.Content, locale, conv.QuestionsAsked+1); err != nil {
		h.logger.Error("failed to send first question", "phone", phone, "error", err)
		return h.sendGenericError(ctx, phone, locale)
	}

	conv.Step = state.StepAssessment
	conv.QuestionsAsked++
	return h.save(ctx, phone, conv)
}

func (h *Handler) handleAssessmentAnswer(ctx context.Context, phone, text string, conv *state.Conversation) error {
	locale := h.locale(conv)

	answerCode, ok := matchAnswer(text)
	if !ok {
		return h.sendTextQuiet(ctx, phone, render(useButtonsMessages, locale, nil))
	}

	reply, err := h.backend.QueryAssistant(ctx, backend.QueryRequest{
		SessionID:          conv.SessionID,
		UserMessage:        text,
		AnswerCode:         answerCode,
		ConfidenceOverride: "sure",
	})
	if err != nil {
		h.logger.Error("failed to process answer", "phone", phone, "error", err)
		return h.sendGenericError(ctx, phone, locale)
	}

	if reply.IsFinal {
		return h.completeAssessment(ctx, phone, conv)
	}

	if err := h.sendQuestion(ctx, phone, reply.Content, locale, conv.QuestionsAsked+1); err != nil {
		h.logger.Error("failed to send next question", "phone", phone, "error", err)
		return h.sendGenericError(ctx, phone, locale)
	}
	conv.QuestionsAsked++
	return h.save(ctx, phone, conv)
}

// completeAssessment closes the backend session and delivers the results
// link. Failures leave the conversation at the assessment step; the close
// call is safe to repeat, so the user can simply answer again.
func (h *Handler) completeAssessment(ctx context.Context, phone string, conv *state.Conversation) error {
	locale := h.locale(conv)

	closed, err := h.backend.CloseSession(ctx, conv.SessionID)
	if err != nil {
		h.logger.Error("failed to close session", "phone", phone, "session_id", conv.SessionID, "error", err)
		return h.sendGenericError(ctx, phone, locale)
	}
	results, err := h.backend.FetchResults(ctx, conv.SessionID)
	if err != nil {
		h.logger.Error("failed to fetch results", "phone", phone, "session_id", conv.SessionID, "error", err)
		return h.sendGenericError(ctx, phone, locale)
	}

	resultsURL := h.resultsURL(conv.SessionID)
	correctedNote := ""
	if results.UsingCorrectedAge() {
		correctedNote = render(correctedAgeNotes, locale, nil)
	}
	completion := render(assessmentCompleteMessages, locale, map[string]string{
		"name":            conv.Collected.ChildName,
		"age_months":      strconv.FormatFloat(results.AgeMonths(), 'f', 1, 64),
		"corrected_note":  correctedNote,
		"total_questions": strconv.Itoa(closed.TotalQuestions),
		"overall_status":  results.OverallStatus(),
		"results_url":     resultsURL,
	})

	if err := h.messenger.SendLink(ctx, phone, completion, resultsURL); err != nil {
		h.logger.Error("failed to send completion message", "phone", phone, "error", err)
		return h.sendGenericError(ctx, phone, locale)
	}

	conv.Step = state.StepCompleted
	return h.save(ctx, phone, conv)
}

func (h *Handler) handleCompletedSession(ctx context.Context, phone string, conv *state.Conversation) error {
	locale := h.locale(conv)
	msg := render(alreadyCompleteMessages, locale, map[string]string{
		"results_url": h.resultsURL(conv.SessionID),
	})
	return h.sendTextQuiet(ctx, phone, msg)
}

// restart clears any stored state and runs the new-user welcome.
func (h *Handler) restart(ctx context.Context, phone string) error {
	if err := h.store.Delete(ctx, phone); err != nil {
		return fmt.Errorf("flow: failed to clear state for restart: %w", err)
	}
	h.logger.Info("conversation restarted", "phone", phone)

	conv, err := h.getOrCreate(ctx, phone)
	if err != nil {
		return err
	}
	return h.handleNewUser(ctx, phone, conv)
}

func (h *Handler) sendHelp(ctx context.Context, phone string) error {
	locale := defaultLocale
	if conv, err := h.store.Get(ctx, phone); err == nil && conv != nil && conv.Collected.Locale != "" {
		locale = conv.Collected.Locale
	}
	return h.sendTextQuiet(ctx, phone, render(helpMessages, locale, nil))
}

func (h *Handler) getOrCreate(ctx context.Context, phone string) (*state.Conversation, error) {
	conv, err := h.store.Get(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("flow: failed to load state: %w", err)
	}
	if conv != nil {
		return conv, nil
	}
	conv = state.NewConversation()
	if err := h.store.Set(ctx, phone, conv); err != nil {
		return nil, fmt.Errorf("flow: failed to create state: %w", err)
	}
	return conv, nil
}

func (h *Handler) save(ctx context.Context, phone string, conv *state.Conversation) error {
	conv.LastActivityAt = time.Now().UTC()
	if err := h.store.Set(ctx, phone, conv); err != nil {
		return fmt.Errorf("flow: failed to save state: %w", err)
	}
	h.metrics.ObserveTransition(string(conv.Step))
	h.logger.Info("saved conversation state", "phone", phone, "step", conv.Step)
	return nil
}

func (h *Handler) sendQuestion(ctx context.Context, phone, question, locale string, number int) error {
	progress := render(questionProgressMessages, locale, map[string]string{
		"current": strconv.Itoa(number),
		"total":   strconv.Itoa(totalQuestionsHint),
	})
	body := progress + "\n\n" + question
	return h.messenger.SendButtons(ctx, phone, body, answerButtonsFor(locale))
}

// sendTextQuiet delivers a corrective or informational message without
// touching state; delivery failures are logged and absorbed.
func (h *Handler) sendTextQuiet(ctx context.Context, phone, body string) error {
	if err := h.messenger.SendText(ctx, phone, body); err != nil {
		h.logger.Error("failed to send message", "phone", phone, "error", err)
	}
	return nil
}

func (h *Handler) sendGenericError(ctx context.Context, phone, locale string) error {
	return h.sendTextQuiet(ctx, phone, render(errorMessages, locale, nil))
}

// meteredMessenger counts outbound sends by kind and delivery status.
type meteredMessenger struct {
	inner   Messenger
	metrics *metrics.ConversationMetrics
}

func (m meteredMessenger) SendText(ctx context.Context, to, body string) error {
	err := m.inner.SendText(ctx, to, body)
	m.record("text", err)
	return err
}

func (m meteredMessenger) SendButtons(ctx context.Context, to, body string, buttons []string) error {
	err := m.inner.SendButtons(ctx, to, body, buttons)
	m.record("buttons", err)
	return err
}

func (m meteredMessenger) SendLink(ctx context.Context, to, body, url string) error {
	err := m.inner.SendLink(ctx, to, body, url)
	m.record("link", err)
	return err
}

func (m meteredMessenger) record(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.metrics.ObserveOutbound(kind, status)
}

func (h *Handler) resultsURL(sessionID string) string {
	return h.resultsBaseURL + "?" + url.Values{"session_id": {sessionID}}.Encode()
}

func (h *Handler) locale(conv *state.Conversation) string {
	if conv.Collected.Locale != "" {
		return conv.Collected.Locale
	}
	return defaultLocale
}
