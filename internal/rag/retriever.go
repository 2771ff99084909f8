package rag

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRetriever calls the get_relevant_chunks database function, the
// similarity RPC exposed by the managed vector store.
type PostgresRetriever struct {
	pool *pgxpool.Pool
}

func NewPostgresRetriever(pool *pgxpool.Pool) *PostgresRetriever {
	return &PostgresRetriever{pool: pool}
}

func (r *PostgresRetriever) RelevantChunks(ctx context.Context, embedding []float32, threshold float64, count int) ([]Chunk, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT content, url, date_updated::text
		FROM get_relevant_chunks($1::vector, $2, $3)
	`, vectorLiteral(embedding), threshold, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		if err := rows.Scan(&chunk.Content, &chunk.URL, &chunk.DateUpdated); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// vectorLiteral renders an embedding in pgvector's text format: [1,2,3].
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
