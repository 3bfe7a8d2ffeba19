package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/paiban/nurseshift/internal/database"
)

// SQLStore 基于 database/sql 的仓储实现
// 语句只使用 PostgreSQL 与 SQLite 共有的语法，占位符按出现顺序编号
type SQLStore struct {
	db   DB
	conn *database.DB // 事务内为 nil
}

// NewSQLStore 创建SQL仓储
func NewSQLStore(conn *database.DB) *SQLStore {
	return &SQLStore{db: conn, conn: conn}
}

// WithTx 在事务中执行，嵌套调用复用外层事务
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.conn == nil {
		return fn(s)
	}
	return s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(&SQLStore{db: tx})
	})
}

// wrapError 包装驱动错误，唯一约束冲突映射为 ErrDuplicate
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s失败: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// inClause 生成 "column IN ($n, ...)"，编号从 next 开始
func inClause(column string, ids []int64, next int) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = fmt.Sprintf("$%d", next+i)
		args[i] = id
	}
	return column + " IN (" + strings.Join(marks, ", ") + ")", args
}

func encodeCodes(codes []string) (string, error) {
	if len(codes) == 0 {
		return "", nil
	}
	data, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeCodes(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, fmt.Errorf("解析班次代码列表失败: %w", err)
	}
	return codes, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

var _ Store = (*SQLStore)(nil)
