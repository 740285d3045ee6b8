package models

import "sort"

// DemoUserID is the fixed user every watchlist operation is recorded against.
const DemoUserID uint = 1

const (
	DemoUsername   = "demo"
	DemoProfilePic = ""
)

const (
	MovieTableName     = "Movies"
	UserTableName      = "User"
	WatchlistTableName = "Watchlist"
)

// Movie is a catalog row. The composite index follows the catalog order.
type Movie struct {
	ID          uint    `gorm:"primaryKey;autoIncrement:false" validate:"gt=0"`
	Title       string  `gorm:"size:255;not null;index:idx_movies_catalog_order,priority:4" validate:"required"`
	PosterURL   string  `gorm:"size:1024" validate:"omitempty,url"`
	ReleaseDate string  `gorm:"size:10;index:idx_movies_catalog_order,priority:3" validate:"omitempty,datetime=2006-01-02"`
	AvgRating   float64 `gorm:"not null;default:0;index:idx_movies_catalog_order,priority:2" validate:"gte=0,lte=10"`
	IsPopular   bool    `gorm:"not null;default:false;index:idx_movies_catalog_order,priority:1"`
}

func (Movie) TableName() string { return MovieTableName }

type User struct {
	ID         uint   `gorm:"primaryKey;autoIncrement:false"`
	Username   string `gorm:"size:100;not null"`
	ProfilePic string `gorm:"size:1024"`
}

func (User) TableName() string { return UserTableName }

// WatchlistEntry links a user to a movie. The composite primary key keeps at
// most one row per pair.
type WatchlistEntry struct {
	UserID  uint `gorm:"primaryKey;autoIncrement:false;index:idx_watchlist_user"`
	MovieID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (WatchlistEntry) TableName() string { return WatchlistTableName }

// IDSet is the set of movie ids in a user's watchlist.
type IDSet map[uint]struct{}

// NewIDSet builds a set from a list of ids.
func NewIDSet(ids ...uint) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is in the set. A nil set contains nothing.
func (s IDSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []uint {
	ids := make([]uint, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
