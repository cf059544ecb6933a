package repository

import "github.com/hannsv/PillGood/internal/database"

// Store bundles the repositories into the schedule store used by the scheduler,
// the adherence engine and the tracker service.
type Store struct {
	*GroupRepository
	*ScheduleRepository
	*HistoryRepository
	*SettingRepository
}

func NewStore(db *database.DB) *Store {
	return &Store{
		GroupRepository:    NewGroupRepository(db),
		ScheduleRepository: NewScheduleRepository(db),
		HistoryRepository:  NewHistoryRepository(db),
		SettingRepository:  NewSettingRepository(db),
	}
}
