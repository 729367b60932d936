package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var fixedNow = time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)

func newOperatorMock(t *testing.T) (*OperatorSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	repo := NewOperatorSQLite(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func TestOperatorSQLite_Create(t *testing.T) {
	tests := []struct {
		name    string
		expect  func(sqlmock.Sqlmock)
		wantID  int
		wantErr error
		anyErr  bool
	}{
		{
			name: "success",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("alice", "h1", "2026-10-01 08:30:00").
					WillReturnResult(sqlmock.NewResult(7, 1))
			},
			wantID: 7,
		},
		{
			name: "duplicate username",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("alice", "h1", "2026-10-01 08:30:00").
					WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)"))
			},
			wantErr: ErrUserExists,
		},
		{
			name: "exec error",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("alice", "h1", "2026-10-01 08:30:00").
					WillReturnError(errors.New("disk I/O error"))
			},
			anyErr: true,
		},
		{
			name: "last insert id error",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
					WithArgs("alice", "h1", "2026-10-01 08:30:00").
					WillReturnResult(sqlmock.NewErrorResult(errors.New("no id")))
			},
			anyErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newOperatorMock(t)
			tc.expect(mock)

			id, err := repo.Create(testCtx(t), "alice", "h1")
			switch {
			case tc.wantErr != nil:
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
			case tc.anyErr:
				if err == nil || errors.Is(err, ErrUserExists) {
					t.Fatalf("expected a plain error, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if id != tc.wantID {
					t.Fatalf("id = %d, want %d", id, tc.wantID)
				}
			}
		})
	}
}

func TestOperatorSQLite_GetByUsername(t *testing.T) {
	cols := []string{"id", "username", "password_hash", "created_at"}

	t.Run("found", func(t *testing.T) {
		repo, mock := newOperatorMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "alice", "h1", fixedNow))

		u, err := repo.GetByUsername(testCtx(t), "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.ID != 3 || u.Username != "alice" || u.PasswordHash != "h1" || !u.CreatedAt.Equal(fixedNow) {
			t.Fatalf("unexpected user: %+v", u)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newOperatorMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.GetByUsername(testCtx(t), "ghost")
		if !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("err = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newOperatorMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectUserByUsernameSQL)).
			WithArgs("alice").
			WillReturnError(errors.New("database is locked"))

		_, err := repo.GetByUsername(testCtx(t), "alice")
		if err == nil || errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected wrapped query error, got %v", err)
		}
	})
}
