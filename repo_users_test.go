package users_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	users "github.com/goliatone/go-users"
)

func TestIsDuplicateEmail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "sqlite unique violation",
			err:  fmt.Errorf("UNIQUE constraint failed: users.email"),
			want: true,
		},
		{
			name: "postgres unique violation",
			err:  fmt.Errorf(`duplicate key value violates unique constraint "users_email_key"`),
			want: true,
		},
		{
			name: "unrelated error",
			err:  fmt.Errorf("connection reset by peer"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, users.IsDuplicateEmail(tt.err))
		})
	}
}
