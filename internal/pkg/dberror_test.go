package pkg

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/simp-lee/mailsync/internal/domain"
)

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantNil  bool
		wantCode domain.ErrorCode
		wantMsg  string
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "record not found", err: gorm.ErrRecordNotFound, wantCode: domain.CodeNotFound, wantMsg: "contact not found"},
		{name: "wrapped not found", err: fmt.Errorf("query: %w", gorm.ErrRecordNotFound), wantCode: domain.CodeNotFound, wantMsg: "contact not found"},
		{name: "duplicated key", err: gorm.ErrDuplicatedKey, wantCode: domain.CodeAlreadyExists, wantMsg: "contact already exists"},
		{name: "sqlite unique message", err: errors.New("UNIQUE constraint failed: accounts.email"), wantCode: domain.CodeAlreadyExists, wantMsg: "contact already exists"},
		{name: "postgres duplicate message", err: errors.New("ERROR: duplicate key value violates unique constraint"), wantCode: domain.CodeAlreadyExists, wantMsg: "contact already exists"},
		{name: "other", err: errors.New("disk I/O error"), wantCode: domain.CodeInternal, wantMsg: "database error"},
		{name: "app error passes through", err: domain.NewAppError(domain.CodeValidation, "bad", nil), wantCode: domain.CodeValidation, wantMsg: "bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.err, "contact")
			if tt.wantNil {
				if got != nil {
					t.Fatalf("MapDBError(nil) = %v, want nil", got)
				}
				return
			}
			var appErr *domain.AppError
			if !errors.As(got, &appErr) {
				t.Fatalf("MapDBError() = %T, want *domain.AppError", got)
			}
			if appErr.Code != tt.wantCode || appErr.Message != tt.wantMsg {
				t.Errorf("MapDBError() = {%d %q}, want {%d %q}", appErr.Code, appErr.Message, tt.wantCode, tt.wantMsg)
			}
		})
	}
}
