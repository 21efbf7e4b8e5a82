// Package repository provides data access for the movie catalog and its embeddings.
package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/formbricks/popchoice/internal/models"
)

//go:embed schema.sql
var schemaTemplate string

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the column dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyEmbedding is returned when a vector has no components.
	ErrEmptyEmbedding = errors.New("embedding is empty")
	// ErrInvalidMatchCount is returned when MatchMovies is asked for fewer than one row.
	ErrInvalidMatchCount = errors.New("match count must be positive")
)

const truncateMoviesSQL = `TRUNCATE movies RESTART IDENTITY`

// MoviesRepository handles data access for the movies table and the match_movies function.
type MoviesRepository struct {
	db         *pgxpool.Pool
	dimensions int
}

// NewMoviesRepository creates a movies repository whose vector column has the given dimension.
func NewMoviesRepository(db *pgxpool.Pool, dimensions int) *MoviesRepository {
	return &MoviesRepository{db: db, dimensions: dimensions}
}

// Schema returns the DDL for the configured dimension.
func (r *MoviesRepository) Schema() string {
	return strings.ReplaceAll(schemaTemplate, "{{DIMENSIONS}}", strconv.Itoa(r.dimensions))
}

// EnsureSchema creates the vector extension, the movies table and the match_movies function if missing.
func (r *MoviesRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, r.Schema()); err != nil {
		return fmt.Errorf("ensure movies schema: %w", err)
	}

	return nil
}

func (r *MoviesRepository) checkVector(embedding []float32) error {
	if len(embedding) == 0 {
		return ErrEmptyEmbedding
	}

	if len(embedding) != r.dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), r.dimensions)
	}

	return nil
}

// movieCopier is satisfied by both the pool and a transaction.
type movieCopier interface {
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

func (r *MoviesRepository) movieRows(movies []models.Movie) ([][]any, error) {
	rows := make([][]any, len(movies))
	for i, m := range movies {
		if err := r.checkVector(m.Embedding); err != nil {
			return nil, fmt.Errorf("movie %d: %w", i, err)
		}

		rows[i] = []any{m.Content, pgvector.NewVector(m.Embedding)}
	}

	return rows, nil
}

func copyMovies(ctx context.Context, db movieCopier, rows [][]any) (int64, error) {
	n, err := db.CopyFrom(ctx,
		pgx.Identifier{"movies"},
		[]string{"content", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("movies bulk insert: %w", err)
	}

	return n, nil
}

// BulkInsert writes all movies in one COPY. Either every row is stored or none is.
func (r *MoviesRepository) BulkInsert(ctx context.Context, movies []models.Movie) (int64, error) {
	if len(movies) == 0 {
		return 0, nil
	}

	rows, err := r.movieRows(movies)
	if err != nil {
		return 0, err
	}

	return copyMovies(ctx, r.db, rows)
}

// ReplaceAll empties the table and writes movies in a single transaction. On any failure the
// previous rows are kept.
func (r *MoviesRepository) ReplaceAll(ctx context.Context, movies []models.Movie) (int64, error) {
	rows, err := r.movieRows(movies)
	if err != nil {
		return 0, err
	}

	var n int64

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, truncateMoviesSQL); err != nil {
			return fmt.Errorf("truncate movies: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}

		var copyErr error
		n, copyErr = copyMovies(ctx, tx, rows)

		return copyErr
	})
	if err != nil {
		return 0, fmt.Errorf("replace movies: %w", err)
	}

	return n, nil
}

// MatchMovies returns up to count stored movies whose cosine similarity to embedding is at least
// threshold, most similar first.
func (r *MoviesRepository) MatchMovies(
	ctx context.Context, embedding []float32, threshold float64, count int,
) ([]models.Match, error) {
	if count < 1 {
		return nil, ErrInvalidMatchCount
	}

	if err := r.checkVector(embedding); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT content, similarity FROM match_movies($1, $2, $3)`,
		pgvector.NewVector(embedding), threshold, count,
	)
	if err != nil {
		return nil, fmt.Errorf("match movies: %w", err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0, count)

	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.Content, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}

		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}

	return matches, nil
}

// List returns every stored movie, oldest first.
func (r *MoviesRepository) List(ctx context.Context) ([]models.Movie, error) {
	rows, err := r.db.Query(ctx, `SELECT id, content, embedding, created_at FROM movies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var movies []models.Movie

	for rows.Next() {
		var (
			m   models.Movie
			vec pgvector.Vector
		)

		if err := rows.Scan(&m.ID, &m.Content, &vec, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}

		m.Embedding = vec.Slice()
		movies = append(movies, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating movies: %w", err)
	}

	return movies, nil
}

// Count returns the number of stored movies.
func (r *MoviesRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}

	return n, nil
}
