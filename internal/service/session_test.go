package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMeditation(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	tracks, err := env.sessions.ListTracks(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, tracks)

	m, err := env.sessions.LogMeditation(ctx, NewMeditationSession{TrackID: &tracks[0].ID, Duration: 600, Completed: true})
	require.NoError(t, err)
	require.NotNil(t, m.TrackID)
	assert.Equal(t, tracks[0].ID, *m.TrackID)
	assert.Equal(t, 600, m.Duration)
	assert.True(t, m.Completed)

	m, err = env.sessions.LogMeditation(ctx, NewMeditationSession{Duration: 30})
	require.NoError(t, err)
	assert.Nil(t, m.TrackID)
	assert.False(t, m.Completed)

	missing := int64(9999)
	_, err = env.sessions.LogMeditation(ctx, NewMeditationSession{TrackID: &missing, Duration: 30})
	assert.True(t, IsNotFound(err))

	_, err = env.sessions.LogMeditation(ctx, NewMeditationSession{Duration: -1})
	assert.True(t, IsValidation(err))
}

func TestStudySessions(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	_, err := env.sessions.LogStudy(ctx, NewStudySession{Duration: 60})
	assert.True(t, IsValidation(err))

	for i := 0; i < StudySessionLimit+5; i++ {
		_, err := env.sessions.LogStudy(ctx, NewStudySession{Technique: "Pomodoro Technique", Duration: 1500, Completed: true})
		require.NoError(t, err)
	}

	sessions, err := env.sessions.ListStudySessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, StudySessionLimit)
	assert.Greater(t, sessions[0].ID, sessions[1].ID, "newest first")
}

func TestTechniques(t *testing.T) {
	env := setupServices(t)
	assert.Len(t, env.sessions.Techniques(), 17)
}
