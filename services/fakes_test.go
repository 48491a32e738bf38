package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/cornhole-club/league-system/models"
	"github.com/cornhole-club/league-system/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubTx replaces the transaction wrapper so service logic runs against the
// in-memory fakes, which ignore the executor argument.
func stubTx(t *testing.T) {
	t.Helper()
	orig := runInTx
	runInTx = func(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
		return fn(nil)
	}
	t.Cleanup(func() { runInTx = orig })
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int

	forceCASConflict bool
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (f *fakeMatchRepo) put(m *models.Match) *models.Match {
	if m.ID == 0 {
		m.ID = f.nextID
		f.nextID++
	} else if m.ID >= f.nextID {
		f.nextID = m.ID + 1
	}
	if m.Version == 0 {
		m.Version = 1
	}
	if m.Status == "" {
		m.Status = models.MatchStatusPending
	}
	clone := *m
	f.matches[m.ID] = &clone
	return m
}

func (f *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	match.ID = f.nextID
	f.nextID++
	match.Version = 1
	match.CreatedAt = time.Now()
	clone := *match
	f.matches[match.ID] = &clone
	return nil
}

func (f *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	clone := *m
	return &clone, nil
}

func (f *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range f.matches {
		if m.TournamentID == tournamentID {
			clone := *m
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out, nil
}

func (f *fakeMatchRepo) ListByTeam(_ context.Context, tournamentID, teamID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range f.matches {
		if m.TournamentID == tournamentID && m.HasTeam(teamID) {
			clone := *m
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out, nil
}

func (f *fakeMatchRepo) UpdateForwardPointers(_ context.Context, _ repositories.SQLExecutor, matchID int, nextWinnerID, nextLoserID *int) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextWinnerMatchID = nextWinnerID
	m.NextLoserMatchID = nextLoserID
	return nil
}

func (f *fakeMatchRepo) FillSlot(_ context.Context, _ repositories.SQLExecutor, matchID, slot, teamID int) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if slot == repositories.SlotTeamB {
		if m.TeamBID != nil {
			return repositories.ErrMatchSlotOccupied
		}
		m.TeamBID = &teamID
		return nil
	}
	if m.TeamAID != nil {
		return repositories.ErrMatchSlotOccupied
	}
	m.TeamAID = &teamID
	return nil
}

func (f *fakeMatchRepo) ClearSlot(_ context.Context, _ repositories.SQLExecutor, matchID, slot, teamID int) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if m.Status != models.MatchStatusPending {
		return repositories.ErrMatchSlotLocked
	}
	if slot == repositories.SlotTeamB {
		if m.TeamBID == nil || *m.TeamBID != teamID {
			return repositories.ErrMatchSlotLocked
		}
		m.TeamBID = nil
		return nil
	}
	if m.TeamAID == nil || *m.TeamAID != teamID {
		return repositories.ErrMatchSlotLocked
	}
	m.TeamAID = nil
	return nil
}

func (f *fakeMatchRepo) CASStart(_ context.Context, matchID, version, startedByUserID int, startedAt time.Time) error {
	m, ok := f.matches[matchID]
	if !ok || f.forceCASConflict || m.Version != version || m.Status != models.MatchStatusPending {
		return repositories.ErrMatchVersionConflict
	}
	m.Status = models.MatchStatusInProgress
	m.StartedByUserID = &startedByUserID
	m.StartedAt = &startedAt
	m.Version++
	return nil
}

func (f *fakeMatchRepo) CASComplete(_ context.Context, _ repositories.SQLExecutor, matchID, version, scoreA, scoreB, winnerID, loserID int, completedAt time.Time, fromStatuses []models.MatchStatus) error {
	m, ok := f.matches[matchID]
	if !ok || f.forceCASConflict || m.Version != version {
		return repositories.ErrMatchVersionConflict
	}
	allowed := false
	for _, s := range fromStatuses {
		if m.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return repositories.ErrMatchVersionConflict
	}
	m.Status = models.MatchStatusComplete
	m.ScoreA = &scoreA
	m.ScoreB = &scoreB
	m.WinnerID = &winnerID
	m.LoserID = &loserID
	m.CompletedAt = &completedAt
	m.Version++
	return nil
}

func (f *fakeMatchRepo) CASReset(_ context.Context, _ repositories.SQLExecutor, matchID, version int) error {
	m, ok := f.matches[matchID]
	if !ok || m.Version != version || m.Status == models.MatchStatusPending {
		return repositories.ErrMatchVersionConflict
	}
	m.Status = models.MatchStatusPending
	m.ScoreA, m.ScoreB = nil, nil
	m.WinnerID, m.LoserID = nil, nil
	m.StartedByUserID, m.StartedAt, m.CompletedAt = nil, nil, nil
	m.Version++
	return nil
}

func (f *fakeMatchRepo) CountNotPending(_ context.Context, tournamentID int) (int, error) {
	count := 0
	for _, m := range f.matches {
		if m.TournamentID == tournamentID && m.Status != models.MatchStatusPending {
			count++
		}
	}
	return count, nil
}

func (f *fakeMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	for id, m := range f.matches {
		if m.TournamentID == tournamentID {
			delete(f.matches, id)
		}
	}
	return nil
}

type fakeTeamRepo struct {
	teams  map[int]*models.Team
	nextID int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[int]*models.Team), nextID: 1}
}

func (f *fakeTeamRepo) put(t *models.Team) *models.Team {
	if t.ID == 0 {
		t.ID = f.nextID
		f.nextID++
	} else if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
	clone := *t
	f.teams[t.ID] = &clone
	return t
}

func (f *fakeTeamRepo) Create(_ context.Context, team *models.Team) error {
	for _, existing := range f.teams {
		if existing.TournamentID == team.TournamentID && existing.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	team.ID = f.nextID
	f.nextID++
	team.CreatedAt = time.Now()
	clone := *team
	f.teams[team.ID] = &clone
	return nil
}

func (f *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTeamRepo) GetByInviteCode(_ context.Context, code string) (*models.Team, error) {
	for _, t := range f.teams {
		if t.InviteCode == code {
			clone := *t
			return &clone, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (f *fakeTeamRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Team, error) {
	return f.list(tournamentID, false), nil
}

func (f *fakeTeamRepo) ListEligible(_ context.Context, tournamentID int) ([]*models.Team, error) {
	return f.list(tournamentID, true), nil
}

func (f *fakeTeamRepo) list(tournamentID int, eligibleOnly bool) []*models.Team {
	var out []*models.Team
	for _, t := range f.teams {
		if t.TournamentID != tournamentID {
			continue
		}
		if eligibleOnly && !t.Eligible() {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.SeedNumber != nil && b.SeedNumber != nil && *a.SeedNumber != *b.SeedNumber:
			return *a.SeedNumber < *b.SeedNumber
		case a.SeedNumber != nil && b.SeedNumber == nil:
			return true
		case a.SeedNumber == nil && b.SeedNumber != nil:
			return false
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.ID < b.ID
		}
	})
	return out
}

func (f *fakeTeamRepo) UpdatePlayers(_ context.Context, teamID int, player1ID, player2ID *int) error {
	t, ok := f.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.Player1ID = player1ID
	t.Player2ID = player2ID
	return nil
}

func (f *fakeTeamRepo) UpdateSeed(_ context.Context, teamID int, seedNumber *int) error {
	t, ok := f.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.SeedNumber = seedNumber
	return nil
}

func (f *fakeTeamRepo) UpdateLogoKey(_ context.Context, teamID int, logoKey *string) error {
	t, ok := f.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.LogoKey = logoKey
	return nil
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
	nextID      int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament), nextID: 1}
}

func (f *fakeTournamentRepo) put(t *models.Tournament) *models.Tournament {
	if t.ID == 0 {
		t.ID = f.nextID
		f.nextID++
	} else if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
	clone := *t
	f.tournaments[t.ID] = &clone
	return t
}

func (f *fakeTournamentRepo) Create(_ context.Context, tournament *models.Tournament) error {
	tournament.ID = f.nextID
	f.nextID++
	tournament.CreatedAt = time.Now()
	clone := *tournament
	f.tournaments[tournament.ID] = &clone
	return nil
}

func (f *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (f *fakeTournamentRepo) List(_ context.Context) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range f.tournaments {
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeTournamentRepo) UpdateRegistrationStatus(_ context.Context, id int, status models.RegistrationStatus) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.RegistrationStatus = status
	return nil
}

func (f *fakeTournamentRepo) UpdateBracketStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.BracketStatus) error {
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BracketStatus = status
	return nil
}

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}
