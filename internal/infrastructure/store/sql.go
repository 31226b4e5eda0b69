package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"line-recipe-bot/internal/pkg/common"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQL 方言
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// 連線池設定
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
)

// 固定寬度時間格式，字串排序即時間排序
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS recipes (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	dish_name TEXT NOT NULL,
	ingredient_text TEXT NOT NULL,
	recipe_text TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL DEFAULT '',
	cuisine TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS favorites (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	recipe_id TEXT NOT NULL,
	dish_name TEXT NOT NULL,
	ingredient_text TEXT NOT NULL,
	recipe_text TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_favorites_user_id ON favorites (user_id);
`

// SQLRepository PostgreSQL 或 SQLite 實作
type SQLRepository struct {
	db      *sql.DB
	dialect string
}

// NewPostgresRepository 連線 PostgreSQL 並建立資料表
func NewPostgresRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	return newSQLRepository(ctx, db, DialectPostgres)
}

// NewSQLiteRepository 開啟 SQLite 檔案（或 ":memory:"）並建立資料表
func NewSQLiteRepository(ctx context.Context, path string) (*SQLRepository, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite 單一寫入者；":memory:" 每條連線各自獨立
	db.SetMaxOpenConns(1)

	return newSQLRepository(ctx, db, DialectSQLite)
}

func newSQLRepository(ctx context.Context, db *sql.DB, dialect string) (*SQLRepository, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	common.LogInfo("資料庫已連線", zap.String("dialect", dialect))
	return &SQLRepository{db: db, dialect: dialect}, nil
}

// rebind 將 ? 轉為 PostgreSQL 的 $n
func (s *SQLRepository) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *SQLRepository) CreateRecipe(ctx context.Context, r *common.Recipe) (string, error) {
	id := common.GenerateUUID()
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO recipes
		(id, user_id, dish_name, ingredient_text, recipe_text, source_url, kind, cuisine, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, r.UserID, r.DishName, r.IngredientText, r.RecipeText, r.SourceURL, string(r.Kind), r.Cuisine, formatTime(createdAt))
	if err != nil {
		return "", fmt.Errorf("failed to insert recipe: %w", err)
	}
	return id, nil
}

func (s *SQLRepository) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	var (
		r         common.Recipe
		kind      string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, user_id, dish_name, ingredient_text, recipe_text,
		source_url, kind, cuisine, created_at FROM recipes WHERE id = ?`), id).
		Scan(&r.ID, &r.UserID, &r.DishName, &r.IngredientText, &r.RecipeText, &r.SourceURL, &kind, &r.Cuisine, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %s: %w", id, err)
	}
	r.Kind = common.RecipeKind(kind)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

func (s *SQLRepository) CreateFavorite(ctx context.Context, f *common.Favorite) (string, error) {
	id := common.GenerateUUID()
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO favorites
		(id, user_id, recipe_id, dish_name, ingredient_text, recipe_text, source_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		id, f.UserID, f.RecipeID, f.DishName, f.IngredientText, f.RecipeText, f.SourceURL, formatTime(createdAt))
	if err != nil {
		return "", fmt.Errorf("failed to insert favorite: %w", err)
	}
	return id, nil
}

const favoriteColumns = `id, user_id, recipe_id, dish_name, ingredient_text, recipe_text, source_url, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFavorite(row rowScanner) (*common.Favorite, error) {
	var (
		f         common.Favorite
		createdAt string
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.RecipeID, &f.DishName, &f.IngredientText, &f.RecipeText, &f.SourceURL, &createdAt); err != nil {
		return nil, err
	}
	f.CreatedAt = parseTime(createdAt)
	return &f, nil
}

func (s *SQLRepository) GetFavorite(ctx context.Context, id string) (*common.Favorite, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+favoriteColumns+` FROM favorites WHERE id = ?`), id)
	f, err := scanFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get favorite %s: %w", id, err)
	}
	return f, nil
}

func (s *SQLRepository) ListFavorites(ctx context.Context, userID string) ([]*common.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+favoriteColumns+` FROM favorites
		WHERE user_id = ? ORDER BY created_at`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]*common.Favorite, 0)
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorite rows: %w", err)
	}
	return favorites, nil
}

func (s *SQLRepository) DeleteFavorite(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM favorites WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete favorite %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLRepository) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLRepository) Close() error {
	return s.db.Close()
}
