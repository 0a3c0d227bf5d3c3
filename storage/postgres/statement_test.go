package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpgradeStatement_QuotesTable(t *testing.T) {
	assert.Equal(t,
		`UPDATE "users" SET is_premium = $1, storage_limit = $2 WHERE email = $3`,
		upgradeStatement("users"))
	assert.Equal(t,
		`UPDATE "app_users""; drop table x; --" SET is_premium = $1, storage_limit = $2 WHERE email = $3`,
		upgradeStatement(`app_users"; drop table x; --`))
}

func TestNew_RequiresConnectionString(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNew_InvalidConnectionString(t *testing.T) {
	_, err := New(context.Background(), Config{ConnectionString: "postgres://%zz"})
	assert.Error(t, err)
}
