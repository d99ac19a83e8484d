package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const createSongsTable = `
	CREATE TABLE IF NOT EXISTS songs (
		artist_name               TEXT NOT NULL,
		song_name                 TEXT NOT NULL,
		lyrics                    TEXT NOT NULL,
		verses                    TEXT[] NOT NULL DEFAULT '{}',
		refrains                  TEXT[] NOT NULL DEFAULT '{}',
		nb_characters             BIGINT NOT NULL,
		nb_words                  BIGINT NOT NULL,
		clean_str                 TEXT NOT NULL,
		lemma_str                 TEXT NOT NULL,
		most_frequent_words_top_5 TEXT[] NOT NULL DEFAULT '{}',
		most_frequent_word        TEXT NOT NULL,
		main_sentiment            TEXT NOT NULL,
		updated_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (artist_name, song_name)
	)
`

const upsertSong = `
	INSERT INTO songs (
		artist_name, song_name, lyrics, verses, refrains, nb_characters, nb_words,
		clean_str, lemma_str, most_frequent_words_top_5, most_frequent_word, main_sentiment
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (artist_name, song_name) DO UPDATE SET
		lyrics = EXCLUDED.lyrics,
		verses = EXCLUDED.verses,
		refrains = EXCLUDED.refrains,
		nb_characters = EXCLUDED.nb_characters,
		nb_words = EXCLUDED.nb_words,
		clean_str = EXCLUDED.clean_str,
		lemma_str = EXCLUDED.lemma_str,
		most_frequent_words_top_5 = EXCLUDED.most_frequent_words_top_5,
		most_frequent_word = EXCLUDED.most_frequent_word,
		main_sentiment = EXCLUDED.main_sentiment,
		updated_at = now()
`

// SongRepository mirrors the enriched song table into Postgres.
type SongRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSongRepository(postgres *PostgresService, logger *zap.Logger) *SongRepository {
	return &SongRepository{
		db:     postgres.GetDB(),
		logger: logger,
	}
}

// EnsureSchema creates the songs table when missing.
func (r *SongRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSongsTable); err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	return nil
}

// SaveRows upserts every row in one transaction keyed by (artist_name, song_name).
func (r *SongRepository) SaveRows(ctx context.Context, rows []domain.SongRow) (int, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSong)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.ArtistName, row.SongName, row.Lyrics,
			pq.Array(nonNil(row.Verses)), pq.Array(nonNil(row.Refrains)),
			row.NbCharacters, row.NbWords,
			row.CleanStr, row.LemmaStr,
			pq.Array(nonNil(row.TopWords)), row.MostFrequentWord, row.MainSentiment,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert %s/%s: %w", row.ArtistName, row.SongName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit songs: %w", err)
	}

	r.logger.Info("Songs saved to Postgres", zap.Int("rows", len(rows)))
	return len(rows), nil
}

// CountBySentiment returns how many stored songs carry each main sentiment.
func (r *SongRepository) CountBySentiment(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT main_sentiment, COUNT(*) FROM songs GROUP BY main_sentiment`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sentiments: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			sentiment string
			count     int
		)
		if err := rows.Scan(&sentiment, &count); err != nil {
			return nil, fmt.Errorf("failed to scan sentiment count: %w", err)
		}
		counts[sentiment] = count
	}
	return counts, rows.Err()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
