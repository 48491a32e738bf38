package services

import (
	"context"
	"testing"

	"github.com/cornhole-club/league-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type teamFixture struct {
	tournamentRepo *fakeTournamentRepo
	teamRepo       *fakeTeamRepo
	service        TeamService
}

func newTeamFixture(t *testing.T) *teamFixture {
	t.Helper()
	tournamentRepo := newFakeTournamentRepo()
	teamRepo := newFakeTeamRepo()
	tournamentRepo.put(&models.Tournament{ID: 1, RegistrationStatus: models.RegistrationOpen})

	return &teamFixture{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		service:        NewTeamService(teamRepo, tournamentRepo, nil, nil, testLogger()),
	}
}

func TestTeamCreate(t *testing.T) {
	t.Run("creator takes the first slot and gets an invite code", func(t *testing.T) {
		f := newTeamFixture(t)

		team, err := f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 7})
		require.NoError(t, err)
		require.NotNil(t, team.Player1ID)
		assert.Equal(t, 7, *team.Player1ID)
		assert.Nil(t, team.Player2ID)
		assert.NotEmpty(t, team.InviteCode)
		assert.False(t, team.Eligible())
	})

	t.Run("blank name", func(t *testing.T) {
		f := newTeamFixture(t)
		_, err := f.service.Create(context.Background(), 1, "  ", Actor{UserID: 7})
		assert.ErrorIs(t, err, ErrTeamNameRequired)
	})

	t.Run("duplicate name", func(t *testing.T) {
		f := newTeamFixture(t)
		_, err := f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 7})
		require.NoError(t, err)
		_, err = f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 8})
		assert.ErrorIs(t, err, ErrTeamNameTaken)
	})

	t.Run("one team per player per tournament", func(t *testing.T) {
		f := newTeamFixture(t)
		_, err := f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 7})
		require.NoError(t, err)
		_, err = f.service.Create(context.Background(), 1, "Second Wind", Actor{UserID: 7})
		assert.ErrorIs(t, err, ErrAlreadyOnTeam)
	})

	t.Run("registration closed", func(t *testing.T) {
		f := newTeamFixture(t)
		f.tournamentRepo.tournaments[1].RegistrationStatus = models.RegistrationClosed
		_, err := f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 7})
		assert.ErrorIs(t, err, ErrRegistrationClosed)
	})
}

func TestTeamJoin(t *testing.T) {
	t.Run("second player completes the team", func(t *testing.T) {
		f := newTeamFixture(t)
		created, err := f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 7})
		require.NoError(t, err)

		team, err := f.service.Join(context.Background(), created.InviteCode, Actor{UserID: 8})
		require.NoError(t, err)
		require.NotNil(t, team.Player2ID)
		assert.Equal(t, 8, *team.Player2ID)
		assert.True(t, team.Eligible())
	})

	t.Run("invalid invite code", func(t *testing.T) {
		f := newTeamFixture(t)
		_, err := f.service.Join(context.Background(), "no-such-code", Actor{UserID: 8})
		assert.ErrorIs(t, err, ErrInviteInvalid)
	})

	t.Run("full team", func(t *testing.T) {
		f := newTeamFixture(t)
		created, err := f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 7})
		require.NoError(t, err)
		_, err = f.service.Join(context.Background(), created.InviteCode, Actor{UserID: 8})
		require.NoError(t, err)

		_, err = f.service.Join(context.Background(), created.InviteCode, Actor{UserID: 9})
		assert.ErrorIs(t, err, ErrTeamFull)
	})

	t.Run("already on another team", func(t *testing.T) {
		f := newTeamFixture(t)
		_, err := f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 7})
		require.NoError(t, err)
		other, err := f.service.Create(context.Background(), 1, "Bag Bandits", Actor{UserID: 8})
		require.NoError(t, err)

		_, err = f.service.Join(context.Background(), other.InviteCode, Actor{UserID: 7})
		assert.ErrorIs(t, err, ErrAlreadyOnTeam)
	})
}

func TestTeamLeave(t *testing.T) {
	f := newTeamFixture(t)
	created, err := f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 7})
	require.NoError(t, err)
	_, err = f.service.Join(context.Background(), created.InviteCode, Actor{UserID: 8})
	require.NoError(t, err)

	err = f.service.Leave(context.Background(), created.ID, Actor{UserID: 9})
	assert.ErrorIs(t, err, ErrNotOnTeam)

	require.NoError(t, f.service.Leave(context.Background(), created.ID, Actor{UserID: 8}))
	team, err := f.service.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, team.Player2ID)
	assert.False(t, team.Eligible())
}

func TestTeamSetSeed(t *testing.T) {
	f := newTeamFixture(t)
	created, err := f.service.Create(context.Background(), 1, "Cornstars", Actor{UserID: 7})
	require.NoError(t, err)

	seed := 3
	err = f.service.SetSeed(context.Background(), created.ID, &seed, Actor{UserID: 7})
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, f.service.SetSeed(context.Background(), created.ID, &seed, adminActor))
	team, err := f.service.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, team.SeedNumber)
	assert.Equal(t, 3, *team.SeedNumber)
}
