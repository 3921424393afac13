package apitest

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/discutex/discutex/internal/model"
)

// Well known credentials created by Seed.
const (
	SeedAdminEmail    = "admin@discutex.local"
	SeedAdminPassword = "password123"
	SeedUserPassword  = "password123"
)

type SeedOptions struct {
	Users              int
	ThreadsPerUser     int
	ResponsesPerThread int
	// Seed makes the generated data reproducible. Zero picks a random seed.
	Seed int64
}

type Seeded struct {
	Admin model.User
	Users []model.User
}

// Seed fills the server with fake users, threads, responses, votes and
// ratings.
func (s *Server) Seed(opts SeedOptions) Seeded {
	if opts.Users <= 0 {
		opts.Users = 8
	}
	if opts.ThreadsPerUser <= 0 {
		opts.ThreadsPerUser = 2
	}
	if opts.ResponsesPerThread <= 0 {
		opts.ResponsesPerThread = 4
	}
	faker := gofakeit.New(opts.Seed)

	out := Seeded{
		Admin: s.AddUser("Admin", "admin", SeedAdminEmail, SeedAdminPassword, model.RoleAdmin),
	}
	for i := 0; i < opts.Users; i++ {
		name := faker.Name()
		username := strings.ToLower(faker.Username()) + fmt.Sprintf("%d", faker.Number(100, 999))
		email := fmt.Sprintf("%s@example.com", username)
		out.Users = append(out.Users, s.AddUser(name, username, email, SeedUserPassword, model.RoleMember))
	}

	everyone := append([]model.User{out.Admin}, out.Users...)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, author := range everyone {
		for t := 0; t < opts.ThreadsPerUser; t++ {
			thread := s.addThreadLocked(author.ID, strings.TrimSuffix(faker.Sentence(5), "."), faker.Paragraph(1, 3, 12, "\n"))
			for r := 0; r < opts.ResponsesPerThread; r++ {
				responder := everyone[faker.Number(0, len(everyone)-1)]
				resp := s.addResponseLocked(thread.ID, responder.ID, faker.Sentence(12))
				voter := everyone[faker.Number(0, len(everyone)-1)]
				if voter.ID != responder.ID {
					s.nextID++
					s.votes = append(s.votes, model.Vote{ID: s.nextID, ResponseID: resp.ID, VoterID: voter.ID, Action: faker.Bool()})
				}
			}
		}
		rater := everyone[faker.Number(0, len(everyone)-1)]
		if rater.ID != author.ID {
			s.ratings = append(s.ratings, model.Rating{UserID: author.ID, RaterID: rater.ID, Value: faker.Number(1, 5)})
		}
	}
	s.addNotificationLocked(out.Admin.ID, "Welcome to Discutex.")
	return out
}
