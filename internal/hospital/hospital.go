// Package hospital assembles the services behind every hms command from one
// configuration.
package hospital

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-management-system/internal/appointment"
	"github.com/hackgods/hospital-management-system/internal/audit"
	"github.com/hackgods/hospital-management-system/internal/authorize"
	"github.com/hackgods/hospital-management-system/internal/config"
	"github.com/hackgods/hospital-management-system/internal/db"
	"github.com/hackgods/hospital-management-system/internal/inventory"
	"github.com/hackgods/hospital-management-system/internal/medrecord"
	"github.com/hackgods/hospital-management-system/internal/outcome"
	"github.com/hackgods/hospital-management-system/internal/personnel"
	redisclient "github.com/hackgods/hospital-management-system/internal/redis"
	"github.com/hackgods/hospital-management-system/internal/session"
	"github.com/hackgods/hospital-management-system/internal/store"
)

// System is one opened data directory with its services.
type System struct {
	DB        *store.DB
	Accounts  *personnel.Service
	Slots     *appointment.Service
	Records   *medrecord.Service
	Medicines *inventory.Service
	Outcomes  *outcome.Linker
	Sessions  *session.Manager

	// Optional backends, nil unless configured.
	PgPool *pgxpool.Pool
	Redis  *redis.Client

	log *zap.Logger
}

// Open loads every table under cfg.DataDir and wires the services. Postgres
// and Redis are connected only when their settings are present.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*System, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sys := &System{log: log}

	database, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	sys.DB = database

	recorders := audit.Multi{audit.NewLogRecorder(log)}
	if cfg.PostgresDSN != "" {
		pool, err := db.ConnectPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pg := audit.NewPgRecorder(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		sys.PgPool = pool
		recorders = append(recorders, pg)
		log.Info("audit events mirrored to postgres")
	}

	locker := redisclient.NewProcessLocker()
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.Connect(ctx, cfg)
		if err != nil {
			sys.Close()
			return nil, err
		}
		sys.Redis = rdb
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		log.Info("using redis slot locks", zap.String("addr", cfg.RedisAddr))
	}

	if err := sys.wire(cfg, locker, recorders); err != nil {
		sys.Close()
		return nil, err
	}
	return sys, nil
}

func (s *System) wire(cfg config.Config, locker redisclient.Locker, recorder audit.Recorder) error {
	mode := cfg.IDMode

	accountRepo, err := personnel.NewCSVRepository(s.DB)
	if err != nil {
		return err
	}
	accountIDs := make(map[personnel.Role]store.IDGenerator, len(personnel.Roles))
	for _, role := range personnel.Roles {
		role := role
		accountIDs[role] = store.NewIDGenerator(mode, role.Prefix(), 3, func() []string { return accountRepo.IDs(role) })
	}
	s.Accounts = personnel.NewService(accountRepo, accountIDs, cfg.LoginRate, cfg.LoginBurst, s.log)

	medicineRepo, err := inventory.NewCSVRepository(s.DB)
	if err != nil {
		return err
	}
	s.Medicines = inventory.NewService(medicineRepo, store.NewIDGenerator(mode, "M", 3, medicineRepo.IDs), s.log)

	recordRepo, err := medrecord.NewCSVRepository(s.DB)
	if err != nil {
		return err
	}
	s.Records = medrecord.NewService(recordRepo, s.Medicines, medrecord.IDs{
		Records:   store.NewIDGenerator(mode, "MR-", 4, recordRepo.RecordIDs),
		Diagnoses: store.NewIDGenerator(mode, "DX-", 4, recordRepo.DiagnosisIDs),
		LineItems: store.NewIDGenerator(mode, "PR-", 4, recordRepo.LineItemIDs),
	}, s.log)

	slotRepo, err := appointment.NewCSVRepository(s.DB)
	if err != nil {
		return err
	}
	s.Slots = appointment.NewService(slotRepo, locker, recorder, store.NewIDGenerator(mode, "A-", 4, slotRepo.IDs), s.log)

	outcomeRepo, err := outcome.NewCSVRepository(s.DB)
	if err != nil {
		return err
	}
	s.Outcomes = outcome.NewLinker(outcomeRepo, s.Slots, s.Medicines, locker, recorder,
		store.NewIDGenerator(mode, "AOR-", 4, outcomeRepo.IDs), s.log)

	authz, err := authorize.New()
	if err != nil {
		return err
	}
	s.Sessions = session.NewManager(s.Accounts, authz)
	return nil
}

// Bootstrap registers a first administrator when no account exists, so a new
// data directory can be logged in to.
func (s *System) Bootstrap(ctx context.Context) (*personnel.Account, error) {
	all, err := s.Accounts.List(ctx, personnel.Filter{})
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		return nil, nil
	}
	acc, err := s.Accounts.Register(ctx, personnel.NewAccount{
		Name:   "Administrator",
		Role:   personnel.RoleAdmin,
		Gender: personnel.GenderOther,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	s.log.Info("bootstrapped administrator account", zap.String("id", acc.ID))
	return acc, nil
}

func (s *System) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.log.Warn("close redis", zap.Error(err))
		}
	}
	if s.PgPool != nil {
		s.PgPool.Close()
	}
}
