package repository

import "gorm.io/gorm"

// Repositories bundles the repositories of one tenant namespace.
type Repositories struct {
	Messages MessageRepository
	Events   EventRepository
	Stats    VariantStatRepository
	Plans    PlanRepository
	Runs     RunRepository
	Attempts AttemptRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Messages: NewGormMessageRepo(db),
		Events:   NewGormEventRepo(db),
		Stats:    NewGormVariantStatRepo(db),
		Plans:    NewGormPlanRepo(db),
		Runs:     NewGormRunRepo(db),
		Attempts: NewGormAttemptRepo(db),
	}
}
