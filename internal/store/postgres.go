package store

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// document — строка таблицы documents: JSON-документ по полному пути.
// Потомок пути хранится либо отдельной строкой, либо внутри документа предка.
type document struct {
	Path      string    `gorm:"primaryKey;type:text"`
	Data      string    `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (document) TableName() string { return "documents" }

// Postgres — хранилище документов поверх PostgreSQL (таблица documents, см. миграции).
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, path string, v interface{}) error {
	segs, err := split(path)
	if err != nil {
		return err
	}
	node, err := p.node(p.db.WithContext(ctx), segs)
	if err != nil {
		return unavailable("get", path, err)
	}
	return fromTree(node, v)
}

func (p *Postgres) Set(ctx context.Context, path string, v interface{}) error {
	segs, err := split(path)
	if err != nil {
		return err
	}
	node, err := toTree(v)
	if err != nil {
		return err
	}
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return p.write(tx, segs, node)
	})
	if err != nil {
		return unavailable("set", path, err)
	}
	return nil
}

func (p *Postgres) Push(ctx context.Context, path string, v interface{}) (string, error) {
	key, err := newKey()
	if err != nil {
		return "", err
	}
	if err := p.Set(ctx, Join(path, key), v); err != nil {
		return "", err
	}
	return key, nil
}

// Increment блокирует строку счётчика (SELECT ... FOR UPDATE) до конца транзакции.
func (p *Postgres) Increment(ctx context.Context, path string, seed SeedFunc) (int64, error) {
	if _, err := split(path); err != nil {
		return 0, err
	}
	var seeded int64
	if seed != nil {
		var exists int64
		if err := p.db.WithContext(ctx).Model(&document{}).Where("path = ?", path).Count(&exists).Error; err != nil {
			return 0, unavailable("increment", path, err)
		}
		if exists == 0 {
			var err error
			if seeded, err = seed(ctx); err != nil {
				return 0, err
			}
		}
	}

	var next int64
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		initial := document{Path: path, Data: strconv.FormatInt(seeded, 10), UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&initial).Error; err != nil {
			return err
		}
		var doc document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("path = ?", path).First(&doc).Error; err != nil {
			return err
		}
		node, err := decodeTree([]byte(doc.Data))
		if err != nil {
			return err
		}
		cur, err := counterValue(node)
		if err != nil {
			return err
		}
		next = cur + 1
		return tx.Model(&document{}).Where("path = ?", path).Updates(map[string]interface{}{
			"data":       strconv.FormatInt(next, 10),
			"updated_at": time.Now(),
		}).Error
	})
	if err != nil {
		return 0, unavailable("increment", path, err)
	}
	return next, nil
}

func (p *Postgres) Count(ctx context.Context, path string) (int, error) {
	segs, err := split(path)
	if err != nil {
		return 0, err
	}
	node, err := p.node(p.db.WithContext(ctx), segs)
	if err != nil {
		return 0, unavailable("count", path, err)
	}
	children, _ := node.(map[string]interface{})
	return len(children), nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// node собирает узел по пути: из документа предка, из строки самого пути или из строк потомков.
func (p *Postgres) node(tx *gorm.DB, segs []string) (interface{}, error) {
	path := Join(segs...)
	var rows []document
	err := tx.Where("path IN ? OR path LIKE ?", append(ancestors(segs), path), likePrefix(path)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sort.Slice(rows, func(i, j int) bool { return len(rows[i].Path) < len(rows[j].Path) })

	first := rows[0]
	if first.Path != path && !strings.HasPrefix(first.Path, path+"/") {
		// Документ предка: спускаемся внутрь.
		node, err := decodeTree([]byte(first.Data))
		if err != nil {
			return nil, err
		}
		for _, s := range segs[len(strings.Split(first.Path, "/")):] {
			dir, ok := node.(map[string]interface{})
			if !ok {
				return nil, nil
			}
			node = dir[s]
		}
		return node, nil
	}
	if first.Path == path {
		return decodeTree([]byte(first.Data))
	}

	tree := make(map[string]interface{})
	for _, r := range rows {
		node, err := decodeTree([]byte(r.Data))
		if err != nil {
			return nil, err
		}
		graft(tree, strings.Split(strings.TrimPrefix(r.Path, path+"/"), "/"), node)
	}
	return tree, nil
}

// write записывает node по пути внутри транзакции. nil удаляет документ.
func (p *Postgres) write(tx *gorm.DB, segs []string, node interface{}) error {
	path := Join(segs...)

	var parent document
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("path IN ?", ancestors(segs)).
		Order("length(path) DESC").Limit(1).Find(&parent)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		tree, err := decodeTree([]byte(parent.Data))
		if err != nil {
			return err
		}
		if obj, ok := tree.(map[string]interface{}); ok {
			rel := segs[len(strings.Split(parent.Path, "/")):]
			if node == nil {
				prune(obj, rel)
			} else {
				graft(obj, rel, node)
			}
			data, err := json.Marshal(obj)
			if err != nil {
				return err
			}
			return tx.Model(&document{}).Where("path = ?", parent.Path).Updates(map[string]interface{}{
				"data":       string(data),
				"updated_at": time.Now(),
			}).Error
		}
		// Скалярный предок заменяется поддеревом.
		if err := tx.Where("path = ?", parent.Path).Delete(&document{}).Error; err != nil {
			return err
		}
	}

	if err := tx.Where("path = ? OR path LIKE ?", path, likePrefix(path)).Delete(&document{}).Error; err != nil {
		return err
	}
	if node == nil {
		return nil
	}
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return tx.Create(&document{Path: path, Data: string(data), UpdatedAt: time.Now()}).Error
}

func ancestors(segs []string) []string {
	out := make([]string, 0, len(segs))
	for i := 1; i < len(segs); i++ {
		out = append(out, Join(segs[:i]...))
	}
	if len(out) == 0 {
		// "IN ()" недопустим в SQL; пустой сегмент никогда не совпадёт с путём.
		out = append(out, "")
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(path string) string {
	return likeEscaper.Replace(path) + "/%"
}

func prune(tree map[string]interface{}, rel []string) {
	cur := tree
	for _, s := range rel[:len(rel)-1] {
		next, ok := cur[s].(map[string]interface{})
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, rel[len(rel)-1])
}
