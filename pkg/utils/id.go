package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID 32 位无连字符 UUID，与 users.id varchar(32) 对齐
func NewID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
