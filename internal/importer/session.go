package importer

// session.go owns the interactive import sessions the wizard UI steps
// through: parse, map, preview, confirm, result.
//
// Each session is local to one interactive upload and is discarded
// after use; no mutable state is shared between sessions. The mapping
// is a value threaded through the steps and frozen at confirm time.

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionTTL is how long an unconfirmed session is kept before being
// discarded.
var SessionTTL = time.Hour

// resultRetention is how long a finished session stays queryable after
// the import completes.
var resultRetention = 5 * time.Minute

// MetricsRecorder receives import activity counters. The engine calls
// it but does not care how it is implemented.
type MetricsRecorder interface {
	ImportStarted(entity EntityType)
	ImportFinished(entity EntityType, succeeded, failed int, d time.Duration)
	DuplicatesFlagged(entity EntityType, n int)
}

// NopMetrics discards all recordings.
type NopMetrics struct{}

func (NopMetrics) ImportStarted(EntityType)                           {}
func (NopMetrics) ImportFinished(EntityType, int, int, time.Duration) {}
func (NopMetrics) DuplicatesFlagged(EntityType, int)                  {}

// Service coordinates import sessions over the external collaborators.
type Service struct {
	executor *Executor
	detector *Detector
	metrics  MetricsRecorder
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	ID       string
	TenantID uuid.UUID
	Def      EntityDefinition
	FileName string
	Table    RawTable

	mu         sync.RWMutex
	mapping    ColumnMapping
	outcomes   []ValidationOutcome
	duplicates DuplicateSet
	dupStale   bool // mapping changed since the last duplicate check
	confirmed  bool
	progress   ImportProgress
	result     *ImportResult
	done       chan struct{}

	listenerMu sync.Mutex
	listeners  []chan ImportProgress
}

// NewService creates a session service. notifier and metrics may be nil.
func NewService(store Store, lookup Lookup, notifier Notifier, metrics MetricsRecorder, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Service{
		executor: NewExecutor(store, notifier, log),
		detector: NewDetector(lookup, log),
		metrics:  metrics,
		log:      log,
		sessions: make(map[string]*session),
	}
}

// SessionView is the wizard-facing snapshot of a session.
type SessionView struct {
	ID              string              `json:"id"`
	Entity          EntityType          `json:"entity"`
	FileName        string              `json:"fileName"`
	Headers         []string            `json:"headers"`
	RowCount        int                 `json:"rowCount"`
	Mapping         ColumnMapping       `json:"mapping"`
	MissingRequired []string            `json:"missingRequired"`
	ValidRows       int                 `json:"validRows"`
	InvalidRows     int                 `json:"invalidRows"`
	Outcomes        []ValidationOutcome `json:"outcomes"`
	Duplicates      DuplicateSet        `json:"duplicates"`
	Phase           ImportPhase         `json:"phase"`
}

// CreateSession parses an uploaded file and opens a new import session
// with an auto-detected mapping. fileName decides the format: .xlsx is
// read as a workbook, everything else as CSV text.
func (s *Service) CreateSession(ctx context.Context, tenantID uuid.UUID, entity EntityType, fileName string, data []byte) (SessionView, error) {
	def, ok := Get(entity)
	if !ok {
		return SessionView{}, fmt.Errorf("unknown entity type: %s", entity)
	}

	var table RawTable
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		var err error
		table, err = ParseWorkbook(bytes.NewReader(data))
		if err != nil {
			return SessionView{}, fmt.Errorf("read workbook: %w", err)
		}
	} else {
		text, encoding := DecodeText(data)
		if encoding != "utf-8" {
			s.log.Debug("transcoded upload", "file", fileName, "encoding", encoding)
		}
		table = ParseCSV(text)
	}

	if len(table.Headers) == 0 {
		return SessionView{}, fmt.Errorf("no data: file has no header row")
	}

	mapping := AutoDetect(table.Headers, def.Fields)

	sess := &session{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Def:        def,
		FileName:   fileName,
		Table:      table,
		mapping:    mapping,
		outcomes:   ValidateRows(table, mapping, def.Fields),
		duplicates: DuplicateSet{Indices: map[int]bool{}},
		dupStale:   true,
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.expireAfter(sess.ID, SessionTTL)

	s.log.Info("import session created",
		"session", sess.ID, "tenant", tenantID, "entity", entity,
		"file", fileName, "rows", len(table.Rows))

	return s.viewLocked(sess), nil
}

// Session returns the current view of a session.
func (s *Service) Session(sessionID string) (SessionView, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return s.viewLocked(sess), nil
}

// SetMapping reassigns one header and revalidates every row. It fails
// once the session is confirmed: the mapping freezes at confirm time.
func (s *Service) SetMapping(sessionID, header, field string) (SessionView, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	if field != SkipField {
		if !hasField(sess.Def.Fields, field) {
			return SessionView{}, fmt.Errorf("unknown field %q for %s", field, sess.Def.Type)
		}
	}
	if !hasHeader(sess.Table.Headers, header) {
		return SessionView{}, fmt.Errorf("unknown column %q", header)
	}

	sess.mu.Lock()
	if sess.confirmed {
		sess.mu.Unlock()
		return SessionView{}, fmt.Errorf("import already confirmed, mapping is frozen")
	}
	sess.mapping = sess.mapping.Set(header, field)
	sess.outcomes = ValidateRows(sess.Table, sess.mapping, sess.Def.Fields)
	sess.dupStale = true
	sess.mu.Unlock()

	return s.viewLocked(sess), nil
}

// RowAnnotation pairs a preview row with its validation and duplicate
// flags.
type RowAnnotation struct {
	RowIndex  int    `json:"rowIndex"`
	Row       Row    `json:"row"`
	Valid     bool   `json:"valid"`
	Error     string `json:"error,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

// Preview returns up to limit annotated rows starting at offset and
// kicks off the duplicate check in the background if the mapping
// changed since the last one. Duplicate flags are additive annotations:
// the preview renders without them and the caller re-reads the session
// once Duplicates.Checking is false.
func (s *Service) Preview(ctx context.Context, sessionID string, offset, limit int) ([]RowAnnotation, SessionView, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, SessionView{}, err
	}

	s.ensureDuplicateCheck(ctx, sess)

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > len(sess.Table.Rows) {
		limit = len(sess.Table.Rows)
	}

	var rows []RowAnnotation
	for i := offset; i < len(sess.Table.Rows) && len(rows) < limit; i++ {
		o := sess.outcomes[i]
		rows = append(rows, RowAnnotation{
			RowIndex:  i,
			Row:       sess.Table.Rows[i],
			Valid:     o.Valid,
			Error:     o.Error,
			Duplicate: sess.duplicates.Indices[i],
		})
	}
	return rows, s.view(sess), nil
}

// ensureDuplicateCheck starts a background duplicate check when the
// current one is stale. The session keeps serving previews while the
// check runs; the result lands whenever it lands.
func (s *Service) ensureDuplicateCheck(ctx context.Context, sess *session) {
	sess.mu.Lock()
	if !sess.dupStale || sess.confirmed {
		sess.mu.Unlock()
		return
	}
	sess.dupStale = false
	sess.duplicates = DuplicateSet{Indices: map[int]bool{}, Checking: true}
	mapping := sess.mapping
	sess.mu.Unlock()

	go func() {
		// Detached from the request context: the check may outlive the
		// preview request that triggered it.
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		set := s.detector.Check(checkCtx, sess.TenantID, sess.Def, sess.Table, mapping)

		sess.mu.Lock()
		// A mapping edit during the check supersedes this result.
		if !sess.dupStale {
			sess.duplicates = set
		}
		sess.mu.Unlock()

		s.metrics.DuplicatesFlagged(sess.Def.Type, set.Count)
	}()
}

// Confirm freezes the mapping and starts the import. It refuses to run
// while any required field is unmapped; that is the only whole-batch
// blocking condition besides total parse failure.
func (s *Service) Confirm(ctx context.Context, sessionID string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.confirmed {
		sess.mu.Unlock()
		return fmt.Errorf("import already confirmed")
	}
	if missing := MissingRequired(sess.mapping, sess.Def.Fields); len(missing) > 0 {
		sess.mu.Unlock()
		return fmt.Errorf("required fields not mapped: %s", strings.Join(missing, ", "))
	}
	sess.confirmed = true
	mapping := sess.mapping // frozen
	sess.progress = ImportProgress{
		SessionID: sess.ID,
		Entity:    sess.Def.Type,
		Phase:     PhaseImporting,
		TotalRows: len(sess.Table.Rows),
	}
	sess.mu.Unlock()

	s.metrics.ImportStarted(sess.Def.Type)

	// The run is detached from the confirming request: once started, an
	// import cannot be cancelled, only awaited.
	runCtx := context.WithoutCancel(ctx)

	go func() {
		result := s.executor.Run(runCtx, sess.TenantID, sess.Def, sess.Table, mapping, func(p ImportProgress) {
			p.SessionID = sess.ID
			sess.mu.Lock()
			sess.progress = p
			sess.mu.Unlock()
			sess.notifyProgress(p)
		})

		sess.mu.Lock()
		sess.result = &result
		sess.progress.Phase = PhaseComplete
		sess.mu.Unlock()

		s.metrics.ImportFinished(sess.Def.Type, result.SuccessCount, result.FailedCount, result.Duration)

		sess.closeListeners()
		close(sess.done)
		s.expireAfter(sess.ID, resultRetention)
	}()

	return nil
}

// SubscribeProgress returns a channel receiving progress snapshots.
// The channel closes when the import completes.
func (s *Service) SubscribeProgress(sessionID string) (<-chan ImportProgress, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	ch := make(chan ImportProgress, 16)

	sess.listenerMu.Lock()
	sess.listeners = append(sess.listeners, ch)
	sess.listenerMu.Unlock()

	sess.mu.RLock()
	current := sess.progress
	finished := sess.result != nil
	sess.mu.RUnlock()

	select {
	case ch <- current:
	default:
	}
	if finished {
		sess.closeListeners()
	}
	return ch, nil
}

// Result blocks until the import completes and returns its result.
func (s *Service) Result(ctx context.Context, sessionID string) (*ImportResult, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.RLock()
	confirmed := sess.confirmed
	sess.mu.RUnlock()
	if !confirmed {
		return nil, fmt.Errorf("import not confirmed yet")
	}

	select {
	case <-sess.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.result, nil
}

func (s *Service) get(sessionID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("import session not found: %s", sessionID)
	}
	return sess, nil
}

func (s *Service) expireAfter(sessionID string, after time.Duration) {
	time.AfterFunc(after, func() {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
	})
}

func (s *Service) viewLocked(sess *session) SessionView {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return s.view(sess)
}

// view builds a SessionView; callers must hold sess.mu.
func (s *Service) view(sess *session) SessionView {
	valid := CountValid(sess.outcomes)
	phase := PhaseMapping
	switch {
	case sess.result != nil:
		phase = PhaseComplete
	case sess.confirmed:
		phase = PhaseImporting
	case len(MissingRequired(sess.mapping, sess.Def.Fields)) == 0:
		phase = PhasePreview
	}
	return SessionView{
		ID:              sess.ID,
		Entity:          sess.Def.Type,
		FileName:        sess.FileName,
		Headers:         sess.Table.Headers,
		RowCount:        len(sess.Table.Rows),
		Mapping:         sess.mapping,
		MissingRequired: MissingRequired(sess.mapping, sess.Def.Fields),
		ValidRows:       valid,
		InvalidRows:     len(sess.outcomes) - valid,
		Outcomes:        sess.outcomes,
		Duplicates:      sess.duplicates,
		Phase:           phase,
	}
}

func (sess *session) notifyProgress(p ImportProgress) {
	sess.listenerMu.Lock()
	defer sess.listenerMu.Unlock()
	for _, ch := range sess.listeners {
		select {
		case ch <- p:
		default: // slow listener, drop the snapshot
		}
	}
}

func (sess *session) closeListeners() {
	sess.listenerMu.Lock()
	defer sess.listenerMu.Unlock()
	for _, ch := range sess.listeners {
		close(ch)
	}
	sess.listeners = nil
}

func hasField(fields []FieldDefinition, field string) bool {
	for _, fd := range fields {
		if fd.Field == field {
			return true
		}
	}
	return false
}

func hasHeader(headers []string, header string) bool {
	for _, h := range headers {
		if h == header {
			return true
		}
	}
	return false
}
