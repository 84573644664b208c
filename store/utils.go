package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/scylladb/go-set/i64set"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// dedupeInt64s removes repeated ids, keeping the first occurrence of each.
func dedupeInt64s(ids []int64) []int64 {
	seen := i64set.NewWithSize(len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen.Has(id) {
			continue
		}
		seen.Add(id)
		result = append(result, id)
	}
	return result
}

// placeholders returns "?, ?, ..." for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// escapeLike escapes the wildcards of a LIKE pattern. Queries use ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// checkAffected returns ErrNotFound if result touched no row.
func checkAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// setSessionKnowledgeBases replaces the knowledge bases of a session.
func setSessionKnowledgeBases(tx execer, sessionID int64, knowledgeBaseIDs []int64) error {
	if _, err := tx.Exec(`DELETE FROM session_knowledge_bases WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing session knowledge bases: %w", err)
	}
	for position, id := range knowledgeBaseIDs {
		_, err := tx.Exec(`
			INSERT INTO session_knowledge_bases (session_id, knowledge_base_id, position)
			VALUES (?, ?, ?)`,
			sessionID, id, position,
		)
		if err != nil {
			return fmt.Errorf("inserting session knowledge base: %w", err)
		}
	}
	return nil
}

// sessionKnowledgeBaseIDs returns the knowledge bases of a session in selection order.
func sessionKnowledgeBaseIDs(q queryer, sessionID int64) ([]int64, error) {
	rows, err := q.Query(`
		SELECT knowledge_base_id FROM session_knowledge_bases
		WHERE session_id = ?
		ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session knowledge bases: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session knowledge base: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session knowledge bases: %w", err)
	}
	return ids, nil
}
