package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

func TestInClause(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	in, args := inClause([]uuid.UUID{a, b})
	if in != "?,?" {
		t.Errorf("placeholders = %q", in)
	}
	if len(args) != 2 || args[0] != a.String() || args[1] != b.String() {
		t.Errorf("args = %v", args)
	}
}

func TestUniqueIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	got := uniqueIDs([]uuid.UUID{a, uuid.Nil, b, a})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("uniqueIDs = %v", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		busy bool
	}{
		{"deadlock", &mysql.MySQLError{Number: errDeadlock}, true},
		{"lock wait", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: errLockWaitTimeout}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"duplicate", &mysql.MySQLError{Number: errDupEntry}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if errors.Is(got, ErrBusy) != tc.busy {
				t.Errorf("classify(%v) busy = %v, want %v", tc.err, !tc.busy, tc.busy)
			}
			if !errors.Is(got, tc.err) {
				t.Errorf("classify must keep the original error in the chain")
			}
		})
	}
	if classify(nil) != nil {
		t.Error("classify(nil) != nil")
	}
}
