// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// SQLiteStore implements JournalStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger used for data quality warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *SQLiteStore) {
		s.logger = logger.With().Str("component", "store").Logger()
	}
}

// NewSQLiteStore creates a new SQLite-based journal store.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:     db,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS strategies (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		rules TEXT,
		performance TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		strategy_id TEXT,
		strategy_name TEXT,
		pair TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL,
		volume REAL,
		stop_loss REAL,
		take_profit REAL,
		profit_loss REAL,
		outcome TEXT,
		entry_model TEXT,
		market_condition TEXT,
		risk_reward_ratio REAL,
		holding_time_minutes REAL,
		setup_quality REAL,
		conviction REAL,
		emotional_drift TEXT,
		rule_checks TEXT,
		notes TEXT,
		execution_notes TEXT,
		timeframe TEXT,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME,
		scores TEXT,
		decision_score INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS score_history (
		id TEXT PRIMARY KEY,
		trade_id TEXT NOT NULL REFERENCES trades(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		score INTEGER NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS period_summaries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		period_type TEXT NOT NULL,
		window_start DATETIME NOT NULL,
		window_end DATETIME NOT NULL,
		total_trades INTEGER NOT NULL,
		total_pnl REAL NOT NULL,
		payload TEXT NOT NULL,
		computed_at DATETIME NOT NULL,
		UNIQUE(user_id, period_type, window_start)
	);

	CREATE INDEX IF NOT EXISTS idx_strategies_user ON strategies(user_id);
	CREATE INDEX IF NOT EXISTS idx_trades_user ON trades(user_id);
	CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy_id);
	CREATE INDEX IF NOT EXISTS idx_trades_entry_time ON trades(entry_time);
	CREATE INDEX IF NOT EXISTS idx_score_history_trade ON score_history(trade_id);
	CREATE INDEX IF NOT EXISTS idx_summaries_user_period ON period_summaries(user_id, period_type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ============================================================================
// Strategies
// ============================================================================

// SaveStrategy inserts or updates a strategy. An empty ID is assigned.
func (s *SQLiteStore) SaveStrategy(ctx context.Context, strategy *models.Strategy) error {
	if strategy.ID == "" {
		strategy.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if strategy.CreatedAt.IsZero() {
		strategy.CreatedAt = now
	}

	rules, err := json.Marshal(strategy.Rules)
	if err != nil {
		return fmt.Errorf("encoding strategy rules: %w", err)
	}
	perf, err := encodeOptional(strategy.Performance)
	if err != nil {
		return fmt.Errorf("encoding strategy performance: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO strategies (id, user_id, name, description, rules, performance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			description = excluded.description,
			rules = excluded.rules,
			performance = COALESCE(excluded.performance, strategies.performance),
			updated_at = excluded.updated_at
	`, strategy.ID, strategy.UserID, strategy.Name, strategy.Description, string(rules), perf, strategy.CreatedAt.UTC(), now)
	if err != nil {
		return dbError("saving strategy", strategy.ID, err)
	}
	return nil
}

// GetStrategy retrieves a strategy by ID.
func (s *SQLiteStore) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, rules, performance, created_at
		FROM strategies WHERE id = ?
	`, id)

	st, err := s.scanStrategy(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrStrategyNotFound, "strategy %s", id)
	}
	if err != nil {
		return nil, dbError("loading strategy", id, err)
	}
	return st, nil
}

// ListStrategies lists a user's strategies by name. An empty user lists all.
func (s *SQLiteStore) ListStrategies(ctx context.Context, userID string) ([]models.Strategy, error) {
	query := "SELECT id, user_id, name, description, rules, performance, created_at FROM strategies"
	args := []interface{}{}
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("listing strategies", userID, err)
	}
	defer rows.Close()

	var strategies []models.Strategy
	for rows.Next() {
		st, err := s.scanStrategy(rows)
		if err != nil {
			return nil, dbError("scanning strategy", userID, err)
		}
		strategies = append(strategies, *st)
	}
	return strategies, rows.Err()
}

// SaveStrategyPerformance stores the latest aggregate of a strategy.
func (s *SQLiteStore) SaveStrategyPerformance(ctx context.Context, perf *models.StrategyPerformance) error {
	payload, err := json.Marshal(perf)
	if err != nil {
		return fmt.Errorf("encoding strategy performance: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE strategies SET performance = ?, updated_at = ? WHERE id = ?
	`, string(payload), time.Now().UTC(), perf.StrategyID)
	if err != nil {
		return dbError("saving strategy performance", perf.StrategyID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrStrategyNotFound, "strategy %s", perf.StrategyID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanStrategy(row rowScanner) (*models.Strategy, error) {
	var st models.Strategy
	var description, rules, perf sql.NullString

	if err := row.Scan(&st.ID, &st.UserID, &st.Name, &description, &rules, &perf, &st.CreatedAt); err != nil {
		return nil, err
	}
	st.Description = description.String

	if rules.Valid && rules.String != "" && rules.String != "null" {
		if err := json.Unmarshal([]byte(rules.String), &st.Rules); err != nil {
			s.logger.Warn().Err(err).Str("strategy_id", st.ID).Msg("Ignoring malformed strategy rules")
		}
	}
	if perf.Valid && perf.String != "" {
		var p models.StrategyPerformance
		if err := json.Unmarshal([]byte(perf.String), &p); err != nil {
			s.logger.Warn().Err(err).Str("strategy_id", st.ID).Msg("Ignoring malformed strategy performance")
		} else {
			st.Performance = &p
		}
	}
	return &st, nil
}

// ============================================================================
// Trades
// ============================================================================

const tradeColumns = `id, user_id, strategy_id, strategy_name, pair, direction, entry_price, exit_price,
	volume, stop_loss, take_profit, profit_loss, outcome, entry_model, market_condition,
	risk_reward_ratio, holding_time_minutes, setup_quality, conviction, emotional_drift,
	rule_checks, notes, execution_notes, timeframe, entry_time, exit_time, scores`

// SaveTrade inserts or updates a trade. An empty ID is assigned.
func (s *SQLiteStore) SaveTrade(ctx context.Context, t *models.Trade) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.EntryTime.IsZero() {
		t.EntryTime = time.Now()
	}

	drift, err := encodeOptional(t.EmotionalDrift)
	if err != nil {
		return fmt.Errorf("encoding emotional drift: %w", err)
	}
	var checks interface{}
	if len(t.RuleChecks) > 0 {
		b, err := json.Marshal(t.RuleChecks)
		if err != nil {
			return fmt.Errorf("encoding rule checks: %w", err)
		}
		checks = string(b)
	}
	scores, err := encodeOptional(t.Scores)
	if err != nil {
		return fmt.Errorf("encoding scores: %w", err)
	}
	var decisionScore interface{}
	if t.Scores != nil {
		decisionScore = t.Scores.DecisionScore
	}
	var exitTime interface{}
	if t.ExitTime != nil && !t.ExitTime.IsZero() {
		exitTime = t.ExitTime.UTC()
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`, decision_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			strategy_id = excluded.strategy_id,
			strategy_name = excluded.strategy_name,
			pair = excluded.pair,
			direction = excluded.direction,
			entry_price = excluded.entry_price,
			exit_price = excluded.exit_price,
			volume = excluded.volume,
			stop_loss = excluded.stop_loss,
			take_profit = excluded.take_profit,
			profit_loss = excluded.profit_loss,
			outcome = excluded.outcome,
			entry_model = excluded.entry_model,
			market_condition = excluded.market_condition,
			risk_reward_ratio = excluded.risk_reward_ratio,
			holding_time_minutes = excluded.holding_time_minutes,
			setup_quality = excluded.setup_quality,
			conviction = excluded.conviction,
			emotional_drift = excluded.emotional_drift,
			rule_checks = excluded.rule_checks,
			notes = excluded.notes,
			execution_notes = excluded.execution_notes,
			timeframe = excluded.timeframe,
			entry_time = excluded.entry_time,
			exit_time = excluded.exit_time,
			scores = excluded.scores,
			decision_score = excluded.decision_score,
			updated_at = excluded.updated_at
	`,
		t.ID, t.UserID, nullString(t.StrategyID), nullString(t.StrategyName), t.Pair, string(t.Direction),
		t.EntryPrice, nullFloat(t.ExitPrice), nullFloat(t.Volume), nullFloat(t.StopLoss), nullFloat(t.TakeProfit),
		nullFloat(t.ProfitLoss), string(t.Outcome), nullString(t.EntryModel), nullString(t.MarketCondition),
		nullFloat(t.RiskRewardRatio), nullFloat(t.HoldingTimeMinutes), nullFloat(t.SetupQuality), nullFloat(t.Conviction),
		drift, checks, t.Notes, t.ExecutionNotes, t.Timeframe, t.EntryTime.UTC(), exitTime, scores,
		decisionScore, now, now,
	)
	if err != nil {
		return dbError("saving trade", t.ID, err)
	}
	return nil
}

// GetTrade retrieves a trade by ID.
func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ?", id)

	t, err := s.scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrTradeNotFound, "trade %s", id)
	}
	if err != nil {
		return nil, dbError("loading trade", id, err)
	}
	return t, nil
}

// GetTrades retrieves trades matching filter, oldest entry first.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.StrategyID != "" {
		query += " AND strategy_id = ?"
		args = append(args, filter.StrategyID)
	}
	if !filter.StartDate.IsZero() {
		query += " AND entry_time >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND entry_time <= ?"
		args = append(args, filter.EndDate.UTC())
	}
	if !filter.ClosedFrom.IsZero() {
		query += " AND COALESCE(exit_time, entry_time) >= ?"
		args = append(args, filter.ClosedFrom.UTC())
	}
	if !filter.ClosedBefore.IsZero() {
		query += " AND COALESCE(exit_time, entry_time) < ?"
		args = append(args, filter.ClosedBefore.UTC())
	}

	query += " ORDER BY entry_time ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("querying trades", filter.UserID, err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := s.scanTrade(rows)
		if err != nil {
			return nil, dbError("scanning trade", filter.UserID, err)
		}
		trades = append(trades, *t)
	}

	return trades, rows.Err()
}

// UpdateTradeScores stores the latest scores on a trade.
func (s *SQLiteStore) UpdateTradeScores(ctx context.Context, tradeID string, scores *models.TradeScores) error {
	payload, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encoding scores: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE trades SET scores = ?, decision_score = ?, updated_at = ? WHERE id = ?
	`, string(payload), scores.DecisionScore, time.Now().UTC(), tradeID)
	if err != nil {
		return dbError("updating trade scores", tradeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrTradeNotFound, "trade %s", tradeID)
	}
	return nil
}

func (s *SQLiteStore) scanTrade(row rowScanner) (*models.Trade, error) {
	var t models.Trade
	var strategyID, strategyName, outcome, entryModel, marketCondition sql.NullString
	var drift, checks, notes, execNotes, timeframe, scores sql.NullString
	var direction string
	var exitPrice, volume, stopLoss, takeProfit, pnl, rr, holding, setup, conviction sql.NullFloat64
	var exitTime sql.NullTime

	if err := row.Scan(
		&t.ID, &t.UserID, &strategyID, &strategyName, &t.Pair, &direction, &t.EntryPrice, &exitPrice,
		&volume, &stopLoss, &takeProfit, &pnl, &outcome, &entryModel, &marketCondition,
		&rr, &holding, &setup, &conviction, &drift,
		&checks, &notes, &execNotes, &timeframe, &t.EntryTime, &exitTime, &scores,
	); err != nil {
		return nil, err
	}

	t.StrategyID = strategyID.String
	t.StrategyName = strategyName.String
	t.Direction = models.Direction(direction)
	t.Outcome = models.Outcome(outcome.String)
	t.EntryModel = entryModel.String
	t.MarketCondition = marketCondition.String
	t.Notes = notes.String
	t.ExecutionNotes = execNotes.String
	t.Timeframe = timeframe.String

	t.ExitPrice = fromNullFloat(exitPrice)
	t.Volume = fromNullFloat(volume)
	t.StopLoss = fromNullFloat(stopLoss)
	t.TakeProfit = fromNullFloat(takeProfit)
	t.ProfitLoss = fromNullFloat(pnl)
	t.RiskRewardRatio = fromNullFloat(rr)
	t.HoldingTimeMinutes = fromNullFloat(holding)
	t.SetupQuality = fromNullFloat(setup)
	t.Conviction = fromNullFloat(conviction)

	if exitTime.Valid {
		et := exitTime.Time
		t.ExitTime = &et
	}

	log := s.logger.With().Str("trade_id", t.ID).Logger()

	// Malformed embedded JSON is treated as absent so one bad row never
	// blocks scoring.
	if d, err := models.ParseEmotionalDrift(drift.String); err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed emotional drift")
	} else {
		t.EmotionalDrift = d
	}
	if rc, err := models.ParseRuleChecks(checks.String); err != nil {
		log.Warn().Err(err).Msg("Ignoring malformed rule checks")
	} else {
		t.RuleChecks = rc
	}
	if raw := strings.TrimSpace(scores.String); raw != "" && raw != "null" {
		var sc models.TradeScores
		if err := json.Unmarshal([]byte(raw), &sc); err != nil {
			log.Warn().Err(err).Msg("Ignoring malformed stored scores")
		} else {
			t.Scores = &sc
		}
	}

	return &t, nil
}

// ============================================================================
// Score history
// ============================================================================

// AppendScoreHistory appends an entry to a trade's score history.
func (s *SQLiteStore) AppendScoreHistory(ctx context.Context, record *models.ScoreRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO score_history (id, trade_id, kind, score, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.TradeID, string(record.Kind), record.Score, record.Payload, record.CreatedAt.UTC())
	if err != nil {
		return dbError("appending score history", record.TradeID, err)
	}
	return nil
}

// GetScoreHistory returns a trade's score history, oldest first.
func (s *SQLiteStore) GetScoreHistory(ctx context.Context, tradeID string) ([]models.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trade_id, kind, score, payload, created_at
		FROM score_history WHERE trade_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, tradeID)
	if err != nil {
		return nil, dbError("querying score history", tradeID, err)
	}
	defer rows.Close()

	var records []models.ScoreRecord
	for rows.Next() {
		var r models.ScoreRecord
		var kind string
		if err := rows.Scan(&r.ID, &r.TradeID, &kind, &r.Score, &r.Payload, &r.CreatedAt); err != nil {
			return nil, dbError("scanning score history", tradeID, err)
		}
		r.Kind = models.ScoreKind(kind)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ============================================================================
// Period summaries
// ============================================================================

// ReplacePeriodSummary atomically replaces the summary of one user, period
// type and window.
func (s *SQLiteStore) ReplacePeriodSummary(ctx context.Context, summary *models.PeriodSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding period summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("beginning summary transaction", summary.UserID, err)
	}
	defer tx.Rollback()

	start := summary.WindowStart.UTC()
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM period_summaries WHERE user_id = ? AND period_type = ? AND window_start = ?
	`, summary.UserID, string(summary.PeriodType), start); err != nil {
		return dbError("deleting period summary", summary.UserID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO period_summaries (id, user_id, period_type, window_start, window_end, total_trades, total_pnl, payload, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), summary.UserID, string(summary.PeriodType), start, summary.WindowEnd.UTC(),
		summary.TotalTrades, summary.TotalPnL, string(payload), summary.ComputedAt.UTC()); err != nil {
		return dbError("inserting period summary", summary.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return dbError("committing period summary", summary.UserID, err)
	}
	return nil
}

// GetPeriodSummary retrieves the summary of one user, period type and window.
func (s *SQLiteStore) GetPeriodSummary(ctx context.Context, userID string, periodType models.PeriodType, windowStart time.Time) (*models.PeriodSummary, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM period_summaries WHERE user_id = ? AND period_type = ? AND window_start = ?
	`, userID, string(periodType), windowStart.UTC()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrSummaryNotFound, "%s summary for %s starting %s", periodType, userID, windowStart.Format("2006-01-02"))
	}
	if err != nil {
		return nil, dbError("loading period summary", userID, err)
	}

	var sum models.PeriodSummary
	if err := json.Unmarshal([]byte(payload), &sum); err != nil {
		return nil, dbError("decoding period summary", userID, err)
	}
	if sum.EmotionalPatterns == nil {
		sum.EmotionalPatterns = map[string]models.EmotionalPattern{}
	}
	return &sum, nil
}

// ============================================================================
// Helpers
// ============================================================================

// dbError keeps both ErrDatabaseError and the driver error in the chain, so
// context deadlines surface as timeouts.
func dbError(op, id string, err error) error {
	return errors.NewDataError(op, id, "", fmt.Errorf("%w: %w", errors.ErrDatabaseError, err))
}

func encodeOptional(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case *models.EmotionalDrift:
		if x == nil {
			return nil, nil
		}
	case *models.TradeScores:
		if x == nil {
			return nil, nil
		}
	case *models.StrategyPerformance:
		if x == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func fromNullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullString(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
