package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation PostgreSQL 唯一约束冲突错误码
const pgUniqueViolation = "23505"

var (
	// ErrMissingContext 缺少必要的学期上下文（结构性前置条件不满足）
	ErrMissingContext = errors.New("缺少学期上下文")
	// ErrNotFound 源数据或记录不存在
	ErrNotFound = errors.New("资源不存在")
)

// MissingContextError 周课表展开或范围化同步缺少学期时返回
// errors.Is(err, ErrMissingContext) 为 true
type MissingContextError struct {
	Operation string // 触发的操作，如 "expand" / "sync schedules"
	Detail    string
}

func (e *MissingContextError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Operation, ErrMissingContext.Error())
	}
	return fmt.Sprintf("%s: %s (%s)", e.Operation, ErrMissingContext.Error(), e.Detail)
}

// Is 支持 errors.Is 与哨兵错误比较
func (e *MissingContextError) Is(target error) bool {
	return target == ErrMissingContext
}

// NewMissingContext 构造 MissingContextError
func NewMissingContext(op, detail string) error {
	return &MissingContextError{Operation: op, Detail: detail}
}

// NotFoundError 指定资源不存在（页面 404、房间名无法解析等）
type NotFoundError struct {
	Resource string
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q 不存在", e.Resource, e.Name)
}

// Is 支持 errors.Is(err, ErrNotFound)
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsUniqueViolation 判断是否为唯一约束冲突（并发同步插入同一自然键）
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
