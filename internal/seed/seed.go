// Package seed fills an empty inventory with the bootstrap theatre
// catalog: five Moscow theatres, each with one 19:00 performance per day
// for the next week.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
)

const (
	days      = 7
	showTime  = "19:00"
	basePrice = 2000
	priceStep = 500
)

type theatre struct {
	name    string
	address string
	lat     float64
	lon     float64
	titles  []string
}

var catalog = []theatre{
	{"Большой театр", "Театральная пл., 1", 55.760241, 37.618644,
		[]string{"Лебединое озеро", "Щелкунчик", "Спящая красавица", "Борис Годунов", "Евгений Онегин"}},
	{"МХТ им. Чехова", "Камергерский пер., 3", 55.760692, 37.613640,
		[]string{"Вишневый сад", "Три сестры", "Чайка", "Дядя Ваня", "Иванов"}},
	{"Театр Ленком", "Малая Дмитровка ул., 6", 55.766333, 37.610321,
		[]string{"Юнона и Авось", "Поминальная молитва", "Шут Балакирев", "Безумный день, или Женитьба Фигаро"}},
	{"Современник", "Чистопрудный бульвар, 19", 55.764977, 37.640536,
		[]string{"Гроза", "Три товарища", "Крутой маршрут", "Антоний & Клеопатра"}},
	{"Театр Сатиры", "Триумфальная пл., 2", 55.769669, 37.595932,
		[]string{"Ревизор", "Горе от ума", "Свадьба Кречинского", "Двенадцатая ночь"}},
}

// VenueWriter is what seeding needs from the venue repository.
type VenueWriter interface {
	DB() *sql.DB
	Count(ctx context.Context) (int, error)
	CreateTx(ctx context.Context, tx *sql.Tx, v *model.Venue) error
}

// EventWriter is what seeding needs from the event repository.
type EventWriter interface {
	CreateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error
}

// Run inserts the catalog when no venue exists yet and reports whether
// it did.  Performances start on today and carry capacity tickets each;
// the price cycles through 2000, 2500 and 3000 roubles.  The catalog is
// written in one transaction, so a failed run leaves the store empty and
// the next run starts over.
func Run(ctx context.Context, venues VenueWriter, events EventWriter, today time.Time, capacity int) (bool, error) {
	n, err := venues.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if capacity <= 0 {
		capacity = model.DefaultCapacity
	}

	tx, err := venues.DB().BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("seed: begin: %w", err)
	}
	if err := insertCatalog(ctx, tx, venues, events, today, capacity); err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("seed: commit: %w", err)
	}
	return true, nil
}

func insertCatalog(ctx context.Context, tx *sql.Tx, venues VenueWriter, events EventWriter, today time.Time, capacity int) error {
	for _, th := range catalog {
		v := &model.Venue{Name: th.name, Address: th.address, Lat: th.lat, Lon: th.lon}
		if err := venues.CreateTx(ctx, tx, v); err != nil {
			return fmt.Errorf("seed venue %q: %w", th.name, err)
		}
		for day := 0; day < days; day++ {
			e := &model.Event{
				VenueID:   v.ID,
				Title:     th.titles[day%len(th.titles)],
				Date:      today.AddDate(0, 0, day).Format(model.DateLayout),
				Time:      showTime,
				Price:     int64(basePrice + (day%3)*priceStep),
				Remaining: capacity,
			}
			if err := events.CreateTx(ctx, tx, e); err != nil {
				return fmt.Errorf("seed event %q: %w", e.Title, err)
			}
		}
	}
	return nil
}
