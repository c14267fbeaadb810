//go:build integration

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/config"
	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/permission"
	"interviewer/roomhub/internal/repository"
)

// setupPostgres starts postgres:16-alpine and returns a migrated database.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "roomhub",
			"POSTGRES_USER":     "roomhub",
			"POSTGRES_PASSWORD": "roomhub",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := config.NewPostgresDB(config.PostgresConfig{
		Host:            host,
		Port:            port.Int(),
		DB:              "roomhub",
		User:            "roomhub",
		Password:        "roomhub",
		SSLMode:         "disable",
		MaxIdleConns:    5,
		MaxOpenConns:    30,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db, permission.Default().All()))
	return db
}

func TestPostgresConcurrentRedemption(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	logger := zap.NewNop()

	store := repository.NewPGStore(db)
	registry := NewParticipantRegistry(permission.Default())
	invites := NewInviteService(store, registry, nil, logger, DefaultRedeemAttempts)

	room := &model.Room{ID: uuid.New(), Name: "pg"}
	require.NoError(t, store.Rooms().Create(ctx, room))
	views, err := invites.GenerateRoomInvites(ctx, room.ID)
	require.NoError(t, err)
	var inviteID uuid.UUID
	for _, v := range views {
		if v.ParticipantType == model.ParticipantTypeExaminee {
			inviteID = v.InviteID
		}
	}

	users := make([]*model.User, 12)
	for i := range users {
		users[i] = &model.User{ID: uuid.New(), Nickname: "u"}
		require.NoError(t, store.Users().Create(ctx, users[i]))
	}

	f := &fixture{ctx: ctx, invites: invites}
	errs := redeemConcurrently(f, inviteID, users)

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		// The row lock serialises redeemers, so none loses a compare-and-swap.
		require.True(t,
			errors.Is(err, ErrInviteNotFound) || errors.Is(err, ErrInviteAlreadyUsed),
			"unexpected error: %v", err)
	}
	require.Equal(t, model.DefaultInviteUsesMax, ok)

	var over int64
	require.NoError(t, db.Model(&model.Invite{}).Where("uses_current > uses_max").Count(&over).Error)
	require.Zero(t, over)

	participants, err := store.Participants().ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, participants, model.DefaultInviteUsesMax)
	for _, p := range participants {
		require.Equal(t, model.ParticipantTypeExaminee, p.Type)
	}

	after, err := invites.ListRoomInvites(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, after, len(model.ParticipantTypes))
}

func TestPostgresCheckConstraint(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	store := repository.NewPGStore(db)

	invite := model.NewInvite()
	require.NoError(t, store.Invites().Create(ctx, invite))

	err := db.Model(&model.Invite{}).Where("id = ?", invite.ID).Update("uses_current", 6).Error
	require.Error(t, err)
}

func TestPostgresConcurrentRoomInviteGeneration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	store := repository.NewPGStore(db)
	registry := NewParticipantRegistry(permission.Default())
	invites := NewInviteService(store, registry, nil, zap.NewNop(), DefaultRedeemAttempts)

	room := &model.Room{ID: uuid.New(), Name: "pg"}
	require.NoError(t, store.Rooms().Create(ctx, room))

	errs := make([]error, 8)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = invites.GenerateRoomInvites(ctx, room.ID)
		}()
	}
	close(start)
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var slots int64
	require.NoError(t, db.Model(&model.RoomInvite{}).Where("room_id = ?", room.ID).Count(&slots).Error)
	require.EqualValues(t, len(model.ParticipantTypes), slots)

	err := store.Invites().CreateRoomInvite(ctx, &model.RoomInvite{
		ID: uuid.New(), RoomID: &room.ID, ParticipantType: model.ParticipantTypeViewer,
	})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
