package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "db_read", snakeCase("db-read"))
	assert.Equal(t, "valid", snakeCase("valid?"))
	assert.Equal(t, "insert", snakeCase("insert!"))
	assert.Equal(t, "a_b", snakeCase("a.b"))
	assert.Equal(t, "user_store", snakeCase("user-store"))
}

func TestPascalCase(t *testing.T) {
	assert.Equal(t, "DbRead", pascalCase("db-read"))
	assert.Equal(t, "User", pascalCase("user"))
	assert.Equal(t, "CreateUser", pascalCase("create-user"))
	assert.Equal(t, "AuditLog", pascalCase("audit_log"))
}

func TestQualifiedPath(t *testing.T) {
	assert.Equal(t, "api::create_user", qualifiedPath("api/create-user"))
	assert.Equal(t, "ext::report", qualifiedPath("ext/report"))
}

func TestRustType(t *testing.T) {
	assert.Equal(t, "String", rustType("String"))
	assert.Equal(t, "i64", rustType("Int"))
	assert.Equal(t, "bool", rustType("Bool"))
	assert.Equal(t, "User", rustType("user"))
}
