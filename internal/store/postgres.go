package store

// Postgres bundles the table repositories into a single Care Store that
// satisfies the engine's CareStore interface. Pass a *pgxpool.Pool for
// normal operation or a pgx.Tx to scope all calls to one transaction.
type Postgres struct {
	*PlantRepository
	*EventRepository
}

// NewPostgres creates a Postgres-backed Care Store.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{
		PlantRepository: NewPlantRepository(db),
		EventRepository: NewEventRepository(db),
	}
}
