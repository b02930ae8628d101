package repo

import (
	"context"
	"errors"
	"time"

	"pyrates-identitydb/internal/domain"
)

// 实验初始数据：四位海盗共用同一口令哈希
const seedPasswordHash = "$2y$10$7y6cKqJ/9sVFLqW9sIEk9ea0oegcNNeFjppAh3KlEpC1SPKlNvmni"

func SeedPyrates() []*domain.Pyrate {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(i int, id, first, last, email, ship string) *domain.Pyrate {
		return &domain.Pyrate{
			ID:           id,
			Email:        email,
			FirstName:    domain.Str(first),
			LastName:     domain.Str(last),
			Ship:         domain.Str(ship),
			PasswordHash: seedPasswordHash,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}
	}
	return []*domain.Pyrate{
		mk(0, "acdcd7f6-10f1-4030-a5f8-73da8000bceb", "William", "Kidd", "william.kidd@potc.live", "Adventure Galley"),
		mk(1, "35059dc7-5d89-44b5-b191-6e31820ac6e3", "Henry", "Morgan", "henry.morgan@potc.live", "Satisfaction"),
		mk(2, "63baab34-263f-4424-bec2-6ead385e69f9", "Henry", "Jennings", "henry.jennings@potc.live", "Bersheba"),
		mk(3, "09dc6d7b-fad2-449d-9130-384477138753", "Ned", "Low", "ned.low@potc.live", "Fancy"),
	}
}

// Seed 仅在仓储为空时写入初始数据，返回写入条数
func Seed(ctx context.Context, r domain.PyrateRepository) (int, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	added := 0
	for _, p := range SeedPyrates() {
		if err := r.Create(ctx, p); err != nil {
			if errors.Is(err, ErrDuplicateEmail) {
				continue
			}
			return added, err
		}
		added++
	}
	return added, nil
}
