package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/sorters-club/sorters/internal/api/v1"
	"github.com/sorters-club/sorters/internal/core/storage"
	"github.com/stretchr/testify/require"
)

func TestAdapter_SaveEvent(t *testing.T) {
	date := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	goal := &v1.Event{
		ID:    "evt-1",
		Type:  v1.CreatedGoal,
		Date:  date,
		User:  v1.User{ID: "u-1", Username: "alice", DisplayName: "Alice"},
		Title: "Run a marathon",
	}

	tests := []struct {
		name       string
		event      *v1.Event
		mockResult func(mock sqlmock.Sqlmock, event *v1.Event)
		assertions func(t *testing.T, err error)
	}{
		{
			name:  "success commits user and event",
			event: goal,
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(queryUpsertUser)).
					WithArgs("u-1", "alice", "Alice").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(regexp.QuoteMeta(querySaveEvent)).
					WithArgs(event.ID, "created-goal", date, "u-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(42)))
				mock.ExpectCommit()
			},
			assertions: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name:  "duplicate maps to ErrDuplicate and rolls back",
			event: goal,
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(queryUpsertUser)).
					WithArgs("u-1", "alice", "Alice").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(regexp.QuoteMeta(querySaveEvent)).
					WithArgs(event.ID, "created-goal", date, "u-1", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"seq"}))
				mock.ExpectRollback()
			},
			assertions: func(t *testing.T, err error) {
				require.ErrorIs(t, err, storage.ErrDuplicate)
			},
		},
		{
			name: "user upsert failure aborts",
			event: &v1.Event{
				ID:   "evt-2",
				Type: v1.UpdatedGoals,
				Date: date,
				User: v1.User{ID: "u-2"},
			},
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(queryUpsertUser)).
					WithArgs("u-2", "", "").
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			assertions: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "failed to upsert user")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			tc.mockResult(mock, tc.event)

			err := adapter.SaveEvent(context.Background(), tc.event)
			tc.assertions(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_RecentEvents(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	date := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryRecentEvents)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()).
			AddRow("evt-2", "created-essay", date.Add(time.Hour), "u-1", "alice", "Alice",
				[]byte(`{"entity":{"id":"es1","title":"On order"}}`)).
			AddRow("evt-1", "updated-profile", date, "u-2", "bob", "",
				[]byte(`{"values":["bio","avatar"]}`)),
		).RowsWillBeClosed()

	events, err := adapter.RecentEvents(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.Equal(t, v1.CreatedEssay, events[0].Type)
	require.Equal(t, v1.User{ID: "u-1", Username: "alice", DisplayName: "Alice"}, events[0].User)
	require.Equal(t, &v1.Entity{ID: "es1", Title: "On order"}, events[0].Entity)

	require.Equal(t, v1.UpdatedProfile, events[1].Type)
	require.Equal(t, []string{"bio", "avatar"}, events[1].Values)
	require.Equal(t, date, events[1].Date)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_RecentEventsRejectsUnknownType(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryRecentEvents)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()).
			AddRow("evt-1", "created-podcast", time.Now(), "u-1", "alice", "", []byte(`{}`)),
		)

	_, err := adapter.RecentEvents(context.Background(), 10)

	var unrecognized *v1.UnrecognizedEventTypeError
	require.ErrorAs(t, err, &unrecognized)
	require.Equal(t, "created-podcast", unrecognized.Type)
}

func TestAdapter_UserEvents(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		limitArg  interface{}
		wantCount int
	}{
		{name: "bounded", limit: 1, limitArg: int64(1), wantCount: 1},
		{name: "unbounded passes NULL", limit: 0, limitArg: nil, wantCount: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			mock.ExpectQuery(regexp.QuoteMeta(queryUserEvents)).
				WithArgs("alice", tc.limitArg).
				WillReturnRows(sqlmock.NewRows(eventRowColumns()).
					AddRow("evt-1", "done-read", time.Now(), "u-1", "alice", "",
						[]byte(`{"title":"Beyond Order","url":"https://books.example.com/bo"}`)),
				)

			events, err := adapter.UserEvents(context.Background(), "alice", tc.limit)
			require.NoError(t, err)
			require.Len(t, events, tc.wantCount)
			require.Equal(t, "Beyond Order", events[0].Title)
			require.Equal(t, "https://books.example.com/bo", events[0].URL)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_CloseReturnsDBCloseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dbCloseErr := errors.New("db close failed")

	mock.ExpectPrepare(regexp.QuoteMeta(queryRecentEvents)).WillBeClosed()
	stmtRecent, err := db.Prepare(queryRecentEvents)
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(queryUserEvents)).WillBeClosed()
	stmtUser, err := db.Prepare(queryUserEvents)
	require.NoError(t, err)

	mock.ExpectClose().WillReturnError(dbCloseErr)

	adapter := &Adapter{
		db:               db,
		stmtRecentEvents: stmtRecent,
		stmtUserEvents:   stmtUser,
	}

	err = adapter.Close()
	require.Error(t, err)
	require.ErrorContains(t, err, "failed to close database")
	require.ErrorIs(t, err, dbCloseErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adapter := &Adapter{
		db:               db,
		stmtRecentEvents: mustPrepareStmt(t, db, mock, queryRecentEvents),
		stmtUserEvents:   mustPrepareStmt(t, db, mock, queryUserEvents),
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)

	return stmt
}

func eventRowColumns() []string {
	return []string{
		"id",
		"type",
		"date",
		"user_id",
		"username",
		"display_name",
		"payload",
	}
}
