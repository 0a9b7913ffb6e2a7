package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readlist/readlist-cli/internal/model"
)

func TestLocator_HeaderVariants(t *testing.T) {
	loc := NewLocator()

	tests := []struct {
		name   string
		text   string
		header model.HeaderVariant
		want   string
	}{
		{
			name:   "canonical with colon",
			text:   "Intro chatter.\nBook Recommendations:\nEducated by Tara Westover",
			header: model.HeaderBookRecommendations,
			want:   "Educated by Tara Westover",
		},
		{
			name:   "no colon",
			text:   "Book Recommendations\nEducated by Tara Westover",
			header: model.HeaderBookRecommendations,
			want:   "Educated by Tara Westover",
		},
		{
			name:   "uppercase",
			text:   "BOOK RECOMMENDATIONS: Educated by Tara Westover",
			header: model.HeaderBookRecommendations,
			want:   "Educated by Tara Westover",
		},
		{
			name:   "bare recommendations",
			text:   "Recommendations: Educated by Tara Westover",
			header: model.HeaderRecommendations,
			want:   "Educated by Tara Westover",
		},
		{
			name:   "singular",
			text:   "Recommendation: Educated by Tara Westover",
			header: model.HeaderRecommendation,
			want:   "Educated by Tara Westover",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, ok := loc.Locate(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.header, span.Header)
			assert.Equal(t, tt.want, tt.text[span.Start:span.End])
		})
	}
}

func TestLocator_EarliestOccurrenceWins(t *testing.T) {
	loc := NewLocator()

	text := "Recommendation: first list\n\nBook Recommendations: second list"
	span, ok := loc.Locate(text)
	require.True(t, ok)
	assert.Equal(t, model.HeaderRecommendation, span.Header)
	assert.Equal(t, "first list", text[span.Start:span.End])
}

func TestLocator_LongestPatternAtSamePosition(t *testing.T) {
	loc := NewLocator()

	// "Book Recommendations" contains "Recommendations"; the longer phrase
	// starts earlier and must win.
	text := "Book Recommendations: Educated by Tara Westover"
	span, ok := loc.Locate(text)
	require.True(t, ok)
	assert.Equal(t, model.HeaderBookRecommendations, span.Header)
}

func TestLocator_EndBoundaries(t *testing.T) {
	loc := NewLocator()

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "blank line ends span",
			text: "Book Recommendations:\nA by B\nC by D\n\nCredits roll here",
			want: "A by B\nC by D",
		},
		{
			name: "end marker ends span",
			text: "Book Recommendations:\nA by B\nEmail us at show@example.com",
			want: "A by B\n",
		},
		{
			name: "runs to end of text",
			text: "Book Recommendations:\nA by B\nC by D",
			want: "A by B\nC by D",
		},
		{
			name: "next header ends span",
			text: "Book Recommendations:\nA by B\nRecommendations: other stuff",
			want: "A by B\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, ok := loc.Locate(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, tt.text[span.Start:span.End])
		})
	}
}

func TestLocator_NoHeader(t *testing.T) {
	loc := NewLocator()

	_, ok := loc.Locate("Great conversation about compilers. No reading list this week.")
	assert.False(t, ok)

	_, ok = loc.Locate("")
	assert.False(t, ok)
}

func TestLocator_HeaderWithNoContent(t *testing.T) {
	loc := NewLocator()

	_, ok := loc.Locate("Book Recommendations:")
	assert.False(t, ok)
}
