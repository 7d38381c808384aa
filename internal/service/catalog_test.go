package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
)

func newTestCatalog(t *testing.T) (*CatalogService, *catalogFixture) {
	t.Helper()
	f := newCatalogFixture(t, 100)
	return NewCatalogService(f.movies, f.theaters, f.screenings, 100, newTestLogger(t)), f
}

func TestCatalog_AddMovie(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	m, err := svc.AddMovie(ctx, MovieInput{Name: " Arrival ", Genre: "Sci-Fi", Duration: 116, Cast: []string{"Amy Adams"}, ReleaseDate: "2016-11-11"})
	require.NoError(t, err)
	assert.Equal(t, "Arrival", m.Name)
	assert.Equal(t, 2016, m.ReleaseDate.Year())

	_, err = svc.AddMovie(ctx, MovieInput{Name: ""})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	_, err = svc.AddMovie(ctx, MovieInput{Name: "X", ReleaseDate: "11/11/2016"})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	list, err := svc.ListMovies(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCatalog_AddTheater(t *testing.T) {
	svc, _ := newTestCatalog(t)

	th, err := svc.AddTheater(context.Background(), TheaterInput{Name: "Rex", Location: "Old Town"})
	require.NoError(t, err)
	assert.Equal(t, 1, th.NumberOfScreens)

	_, err = svc.AddTheater(context.Background(), TheaterInput{Name: "Rex"})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestCatalog_AssignScreening(t *testing.T) {
	svc, f := newTestCatalog(t)
	ctx := context.Background()

	sc, err := svc.AssignScreening(ctx, AssignInput{MovieID: 1, TheaterID: 1, ScreenNumber: 2, ShowTimings: []string{"10:00", " 10:00", "13:00"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "13:00"}, sc.ShowTimings)
	assert.Equal(t, 100, sc.Capacity)

	st, err := f.screenings.GetShowtime(ctx, 1, 1, "13:00")
	require.NoError(t, err)
	assert.Equal(t, 100, st.Available())

	_, err = svc.AssignScreening(ctx, AssignInput{MovieID: 1, TheaterID: 1, ScreenNumber: 2, ShowTimings: []string{"18:00"}})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.AssignScreening(ctx, AssignInput{MovieID: 1, TheaterID: 1, ScreenNumber: 3, ShowTimings: []string{"23:00"}})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = svc.AssignScreening(ctx, AssignInput{MovieID: 7, TheaterID: 1, ScreenNumber: 1, ShowTimings: []string{"23:00"}})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.AssignScreening(ctx, AssignInput{MovieID: 1, TheaterID: 1, ScreenNumber: 1})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	sc, err = svc.AssignScreening(ctx, AssignInput{MovieID: 1, TheaterID: 1, ScreenNumber: 1, ShowTimings: []string{"23:30"}, Capacity: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, sc.Capacity)
}
