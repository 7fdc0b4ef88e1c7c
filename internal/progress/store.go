// Package progress persists learner activity: quiz answers, flashcard
// ratings, visited sections, preferences and daily streaks.
package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"

	"github.com/m3rciful/pharmtutor/core/logger"
)

// Event kinds.
const (
	KindQuizAnswer = "quiz_answer"
	KindFlashcard  = "flashcard"
	KindVisit      = "visit"
)

// Quiz answer outcomes.
const (
	OutcomeCorrect = "correct"
	OutcomeWrong   = "wrong"
)

// Store operation outcomes reported to Observe.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultRejected = "rejected"
)

const dayLayout = "2006-01-02"

// Event is one learner action. Events sharing a non-empty DedupKey for the
// same user are stored once.
type Event struct {
	UserID   int64
	Kind     string
	Subject  string
	Outcome  string
	DedupKey string
}

// CategoryStat aggregates quiz answers of one category.
type CategoryStat struct {
	Category string `db:"category"`
	Total    int    `db:"total"`
	Correct  int    `db:"correct"`
}

// SectionStat counts visits of one section, e.g. "drug:Литий".
type SectionStat struct {
	Section string `db:"section"`
	Count   int    `db:"cnt"`
}

// Stats is the per-user snapshot shown in progress views.
type Stats struct {
	TotalQuestions   int
	CorrectAnswers   int
	Accuracy         float64
	Categories       []CategoryStat
	Sections         []SectionStat
	FlashcardRatings map[string]int
}

// Streak holds consecutive active days.
type Streak struct {
	Current int
	Longest int
}

// AdminStats is the bot-wide usage summary.
type AdminStats struct {
	TotalUsers     int `db:"total_users"`
	NewUsers7d     int `db:"new_users"`
	ActiveToday    int `db:"active_today"`
	TotalQuestions int `db:"total_questions"`
}

// Options tune a Store.
type Options struct {
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
	// Observe receives every operation with its result.
	Observe func(op, result string)
	// FailureThreshold consecutive failures open the breaker; defaults to 5.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open; defaults to 30s.
	OpenTimeout time.Duration
}

// Store implements progress persistence over sqlx. Every call goes through
// a circuit breaker so a dead database fails fast.
type Store struct {
	db      *sqlx.DB
	cb      *gobreaker.CircuitBreaker
	now     func() time.Time
	observe func(op, result string)
}

// NewStore wraps an open database.
func NewStore(db *sqlx.DB, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	threshold := opts.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "progress-store",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Store.Warn("breaker state changed",
				slog.String("event", "store.breaker"),
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return &Store{db: db, cb: cb, now: opts.Now, observe: opts.Observe}
}

// BreakerState reports the breaker state for health output.
func (s *Store) BreakerState() string {
	return s.cb.State().String()
}

func (s *Store) run(op string, fn func() error) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	result := ResultOK
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = ResultRejected
	default:
		result = ResultError
	}
	if s.observe != nil {
		s.observe(op, result)
	}
	if err != nil {
		logger.Store.Debug("store op failed",
			slog.String("event", "store."+op),
			slog.String("result", result),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("progress: %s: %w", op, err)
	}
	return nil
}

func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// Ping checks database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.run("ping", func() error {
		return s.db.PingContext(ctx)
	})
}

// EnsureUser registers the user or refreshes username and last seen time.
func (s *Store) EnsureUser(ctx context.Context, userID int64, username string) error {
	return s.run("ensure_user", func() error {
		now := s.stamp()
		_, err := s.db.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO users (user_id, username, created_at, last_seen_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE
			SET username = excluded.username, last_seen_at = excluded.last_seen_at`),
			userID, username, now, now)
		return err
	})
}

// RecordEvent stores ev and reports whether it was new. A repeated
// DedupKey is not an error.
func (s *Store) RecordEvent(ctx context.Context, ev Event) (bool, error) {
	var inserted bool
	err := s.run("record_event", func() error {
		dedup := sql.NullString{String: ev.DedupKey, Valid: ev.DedupKey != ""}
		res, err := s.db.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO events (user_id, kind, subject, outcome, dedup_key, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`),
			ev.UserID, ev.Kind, ev.Subject, ev.Outcome, dedup, s.stamp())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

// AggregateStats builds the progress snapshot of a user.
func (s *Store) AggregateStats(ctx context.Context, userID int64) (Stats, error) {
	var st Stats
	err := s.run("aggregate_stats", func() error {
		var totals struct {
			Total   int `db:"total"`
			Correct int `db:"correct"`
		}
		if err := s.db.GetContext(ctx, &totals, s.db.Rebind(`
			SELECT COUNT(*) AS total,
			       COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS correct
			FROM events WHERE user_id = ? AND kind = ?`),
			OutcomeCorrect, userID, KindQuizAnswer); err != nil {
			return err
		}
		st.TotalQuestions = totals.Total
		st.CorrectAnswers = totals.Correct
		st.Accuracy = Accuracy(totals.Correct, totals.Total)

		if err := s.db.SelectContext(ctx, &st.Categories, s.db.Rebind(`
			SELECT subject AS category,
			       COUNT(*) AS total,
			       COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS correct
			FROM events WHERE user_id = ? AND kind = ?
			GROUP BY subject
			ORDER BY total DESC, subject`),
			OutcomeCorrect, userID, KindQuizAnswer); err != nil {
			return err
		}

		if err := s.db.SelectContext(ctx, &st.Sections, s.db.Rebind(`
			SELECT subject AS section, COUNT(*) AS cnt
			FROM events WHERE user_id = ? AND kind = ?
			GROUP BY subject
			ORDER BY MAX(created_at) DESC, subject`),
			userID, KindVisit); err != nil {
			return err
		}

		var ratings []struct {
			Rating string `db:"rating"`
			Count  int    `db:"cnt"`
		}
		if err := s.db.SelectContext(ctx, &ratings, s.db.Rebind(`
			SELECT outcome AS rating, COUNT(*) AS cnt
			FROM events WHERE user_id = ? AND kind = ?
			GROUP BY outcome`),
			userID, KindFlashcard); err != nil {
			return err
		}
		st.FlashcardRatings = make(map[string]int, len(ratings))
		for _, r := range ratings {
			st.FlashcardRatings[r.Rating] = r.Count
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

// Accuracy is correct/total as a percentage rounded to one decimal.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(int64(float64(correct)/float64(total)*1000+0.5)) / 10
}

// UpsertPreference stores a per-user setting.
func (s *Store) UpsertPreference(ctx context.Context, userID int64, key, value string) error {
	return s.run("upsert_preference", func() error {
		_, err := s.db.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO user_prefs (user_id, pref_key, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, pref_key) DO UPDATE
			SET value = excluded.value, updated_at = excluded.updated_at`),
			userID, key, value, s.stamp())
		return err
	})
}

// Preference reads a per-user setting.
func (s *Store) Preference(ctx context.Context, userID int64, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.run("preference", func() error {
		err := s.db.GetContext(ctx, &value, s.db.Rebind(
			`SELECT value FROM user_prefs WHERE user_id = ? AND pref_key = ?`), userID, key)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return value, found, err
}

// TouchDailyStreak marks today as active and returns the updated streak.
func (s *Store) TouchDailyStreak(ctx context.Context, userID int64, today time.Time) (Streak, error) {
	var out Streak
	err := s.run("touch_streak", func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var row struct {
			Current    int    `db:"current_streak"`
			Longest    int    `db:"longest_streak"`
			LastActive string `db:"last_active"`
		}
		err = tx.GetContext(ctx, &row, tx.Rebind(
			`SELECT current_streak, longest_streak, last_active FROM streaks WHERE user_id = ?`), userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		out = advanceStreak(Streak{Current: row.Current, Longest: row.Longest}, row.LastActive, today)
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO streaks (user_id, current_streak, longest_streak, last_active)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE
			SET current_streak = excluded.current_streak,
			    longest_streak = excluded.longest_streak,
			    last_active = excluded.last_active`),
			userID, out.Current, out.Longest, today.Format(dayLayout)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return Streak{}, err
	}
	return out, nil
}

// advanceStreak applies one active day: same day keeps the streak, the next
// day extends it, any gap restarts it at 1.
func advanceStreak(s Streak, lastActive string, today time.Time) Streak {
	day := today.Format(dayLayout)
	if lastActive == day && s.Current > 0 {
		return s
	}
	next := 1
	if last, err := time.Parse(dayLayout, lastActive); err == nil {
		if last.AddDate(0, 0, 1).Format(dayLayout) == day {
			next = s.Current + 1
		}
	}
	s.Current = next
	if s.Longest < s.Current {
		s.Longest = s.Current
	}
	return s
}

// AdminStats summarises bot usage.
func (s *Store) AdminStats(ctx context.Context) (AdminStats, error) {
	var st AdminStats
	err := s.run("admin_stats", func() error {
		now := s.stamp()
		y, m, d := now.Date()
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return s.db.GetContext(ctx, &st, s.db.Rebind(`
			SELECT
			  (SELECT COUNT(*) FROM users) AS total_users,
			  (SELECT COUNT(*) FROM users WHERE created_at >= ?) AS new_users,
			  (SELECT COUNT(*) FROM users WHERE last_seen_at >= ?) AS active_today,
			  (SELECT COUNT(*) FROM events WHERE kind = ?) AS total_questions`),
			now.AddDate(0, 0, -7), dayStart, KindQuizAnswer)
	})
	if err != nil {
		return AdminStats{}, err
	}
	return st, nil
}
