package repository

import (
	"errors"
	"fmt"

	"github.com/hitoshi/beefboard/internal/model"
	"github.com/lib/pq"
)

// integrityViolationClass はPostgreSQLの整合性制約違反（23xxx）のエラークラス。
const integrityViolationClass = "23"

// wrapStoreError は永続化エラーをラップする。
// 整合性制約違反以外はErrStoreUnavailableでラップし、
// 呼び出し側は errors.Is(err, model.ErrStoreUnavailable) で判定できる。
func wrapStoreError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == integrityViolationClass {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}

// rowsToWriteResult は影響行数を書き込み結果に変換する。
// ON CONFLICT DO NOTHING や条件付きUPDATEで0行の場合は競合とみなす。
func rowsToWriteResult(affected int64) WriteResult {
	if affected == 0 {
		return WriteConflict
	}
	return WriteApplied
}
