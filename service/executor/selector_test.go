package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelector_Select(t *testing.T) {
	session := &Session{ID: "session-1", UserID: "alice"}
	ctx := context.Background()

	testCases := []struct {
		description  string
		directReady  bool
		noDirect     bool
		toolsetCaps  []Capability
		noToolset    bool
		preference   Preference
		expectName   string
		expectNoExec bool
	}{
		{
			description: "auto prefers direct when credentials resolve",
			directReady: true,
			toolsetCaps: []Capability{{Name: "calendar.createEvent"}},
			preference:  PreferenceAuto,
			expectName:  "direct",
		},
		{
			description: "auto falls through to toolset without credentials",
			toolsetCaps: []Capability{{Name: "calendar.createEvent"}},
			preference:  PreferenceAuto,
			expectName:  "toolset",
		},
		{
			description:  "auto with no credentials and empty toolset fails",
			preference:   PreferenceAuto,
			expectNoExec: true,
		},
		{
			description: "empty preference behaves as auto",
			directReady: true,
			expectName:  "direct",
		},
		{
			description: "explicit direct",
			directReady: true,
			preference:  PreferenceDirect,
			expectName:  "direct",
		},
		{
			description:  "explicit direct without credentials fails, no fallback",
			toolsetCaps:  []Capability{{Name: "calendar.createEvent"}},
			preference:   PreferenceDirect,
			expectNoExec: true,
		},
		{
			description:  "explicit direct without provider fails",
			noDirect:     true,
			preference:   PreferenceDirect,
			expectNoExec: true,
		},
		{
			description: "explicit toolset",
			directReady: true,
			toolsetCaps: []Capability{{Name: "calendar.createEvent"}},
			preference:  PreferenceToolset,
			expectName:  "toolset",
		},
		{
			description:  "explicit toolset with no capabilities fails",
			directReady:  true,
			preference:   PreferenceToolset,
			expectNoExec: true,
		},
		{
			description:  "explicit toolset without provider fails",
			noToolset:    true,
			preference:   PreferenceToolset,
			expectNoExec: true,
		},
	}

	for _, testCase := range testCases {
		var direct, toolset Service
		if !testCase.noDirect {
			direct = &proberProvider{fakeProvider: fakeProvider{
				name:         "direct",
				ready:        testCase.directReady,
				capabilities: []Capability{{Name: "createEvent"}},
			}}
		}
		if !testCase.noToolset {
			toolset = &fakeProvider{name: "toolset", capabilities: testCase.toolsetCaps}
		}
		selector := NewSelector(direct, toolset)

		provider, capabilities, err := selector.Select(ctx, session, testCase.preference)
		if testCase.expectNoExec {
			assert.ErrorIs(t, err, ErrNoExecutorAvailable, testCase.description)
			continue
		}
		if !assert.Nil(t, err, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.expectName, provider.Name(), testCase.description)
		assert.NotEmpty(t, capabilities, testCase.description)
	}
}

func TestSelector_unknownPreference(t *testing.T) {
	selector := NewSelector(nil, &fakeProvider{name: "toolset"})
	_, _, err := selector.Select(context.Background(), &Session{ID: "s"}, Preference("weird"))
	assert.NotNil(t, err)
}
