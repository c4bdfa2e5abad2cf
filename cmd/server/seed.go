package main

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/campusnet/internal/auth"
	"github.com/vedran77/campusnet/internal/domain"
	"github.com/vedran77/campusnet/internal/repository/memory"
)

var demoProfiles = []domain.Profile{
	{Identity: "ana.kovac@student.unizg.hr", DisplayName: "Ana Kovač", Kind: domain.ProfileStudent},
	{Identity: "ivan.horvat@student.unizg.hr", DisplayName: "Ivan Horvat", Kind: domain.ProfileStudent},
	{Identity: "lucija.babic@student.unizg.hr", DisplayName: "Lucija Babić", Kind: domain.ProfileStudent},
	{Identity: "robotics@udruge.unizg.hr", DisplayName: "Robotics Club", Kind: domain.ProfileOrganization},
}

// seedDemo fills the in-memory store with a few profiles and posts and logs a
// day-long token for each profile.
func seedDemo(store *memory.Store, tokens *auth.Tokens, logger *slog.Logger) {
	now := time.Now()
	for i, p := range demoProfiles {
		p.CreatedAt = now
		store.AddProfile(p)
		store.AddPost(domain.Post{
			ID:        uuid.New(),
			Author:    p.Identity,
			Body:      "Hello from " + p.DisplayName,
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		})

		token, err := tokens.Sign(p.Identity, 24*time.Hour)
		if err != nil {
			logger.Warn("signing demo token", "identity", p.Identity.String(), "error", err)
			continue
		}
		logger.Info("demo profile", "identity", p.Identity.String(), "token", token)
	}
}
