package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-service/internal/models"
)

func TestMemory_ProjectLifecycle(t *testing.T) {
	mem := NewMemory()
	projects := mem.Projects()
	ctx := context.Background()

	desc := "first"
	p := &models.Project{ArtisanID: 1, Title: "A", Description: &desc, Status: models.StatusPlanned}
	require.NoError(t, projects.Insert(ctx, p))
	assert.Equal(t, int64(1), p.ID)

	// stored copies are isolated from caller mutations
	desc = "mutated"
	got, err := projects.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", *got.Description)

	got.Title = "B"
	require.NoError(t, projects.Update(ctx, got))
	again, err := projects.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", again.Title)

	assert.ErrorIs(t, projects.Update(ctx, &models.Project{ID: 42}), ErrNotFound)
	require.NoError(t, projects.DeleteByID(ctx, p.ID))
	assert.ErrorIs(t, projects.DeleteByID(ctx, p.ID), ErrNotFound)
	_, err = projects.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdatesOrderingAndCascade(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	p := &models.Project{ArtisanID: 1, Title: "A", Status: models.StatusPlanned}
	require.NoError(t, mem.Projects().Insert(ctx, p))

	same := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		u := &models.ChantierUpdate{ProjectID: p.ID, ProgressPercent: i * 10, CreatedAt: same}
		require.NoError(t, mem.Updates().Insert(ctx, u))
	}

	got, err := mem.Updates().FindByProjectID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// equal timestamps fall back to id DESC
	assert.Equal(t, []int64{3, 2, 1}, []int64{got[0].ID, got[1].ID, got[2].ID})

	latest, err := mem.Updates().LatestByProjectIDs(ctx, []int64{p.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest[p.ID].ID)

	err = mem.Updates().Insert(ctx, &models.ChantierUpdate{ProjectID: 999, CreatedAt: same})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mem.Projects().DeleteByID(ctx, p.ID))
	got, err = mem.Updates().FindByProjectID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemory_ConcurrentInserts(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(artisan int64) {
			defer wg.Done()
			_ = mem.Projects().Insert(ctx, &models.Project{ArtisanID: artisan, Title: "t", Status: models.StatusPlanned})
		}(int64(i % 5))
	}
	wg.Wait()

	all, err := mem.Projects().FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}

	mine, err := mem.Projects().FindByArtisanID(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, mine, 10)
}
