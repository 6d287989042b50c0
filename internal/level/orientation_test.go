package level

import "testing"

func TestClassifyTransitions(t *testing.T) {
	tests := []struct {
		name string
		g    [3]float64
		want Orientation
	}{
		{name: "left edge down", g: [3]float64{-0.7, -0.1, 0.2}, want: OrientationLandscapeLeft},
		{name: "right edge down", g: [3]float64{0.7, 0.1, 0.2}, want: OrientationLandscapeRight},
		{name: "bottom edge down", g: [3]float64{0.1, -0.8, 0.2}, want: OrientationPortrait},
		{name: "top edge down", g: [3]float64{0.1, 0.8, 0.2}, want: OrientationPortraitUpsideDown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newClassifier()
			if got := c.classify(tc.g); got != tc.want {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
			if c.lastStable != tc.want {
				t.Fatalf("lastStable=%v want=%v", c.lastStable, tc.want)
			}
		})
	}
}

func TestClassifyFlatKeepsLastStable(t *testing.T) {
	c := newClassifier()
	c.lastStable = OrientationLandscapeLeft

	// Face up and face down are both too flat to disambiguate.
	if got := c.classify([3]float64{0, 0, 0.9}); got != OrientationLandscapeLeft {
		t.Fatalf("face down: got=%v want=landscapeLeft", got)
	}
	if got := c.classify([3]float64{0, 0, -0.9}); got != OrientationLandscapeLeft {
		t.Fatalf("face up: got=%v want=landscapeLeft", got)
	}
	// At exactly the guard value classification proceeds.
	if got := c.classify([3]float64{0.05, -0.5, 0.85}); got != OrientationPortrait {
		t.Fatalf("at guard: got=%v want=portrait", got)
	}
}

func TestClassifyHysteresisHolds(t *testing.T) {
	c := newClassifier()
	c.lastStable = OrientationPortrait

	// Near the diagonal neither axis wins by the margin.
	cases := [][3]float64{
		{0.70, -0.70, 0.1},
		{0.71, -0.70, 0.1},  // x ahead, but inside the margin
		{-0.70, 0.71, 0.1},  // y ahead, inside the margin
		{0.705, -0.69, 0.1}, // just under the margin
	}
	for _, g := range cases {
		if got := c.classify(g); got != OrientationPortrait {
			t.Fatalf("g=%v: got=%v want=portrait (hold)", g, got)
		}
	}

	// Once the margin is cleared the transition happens.
	if got := c.classify([3]float64{0.75, -0.70, 0.1}); got != OrientationLandscapeRight {
		t.Fatalf("got=%v want=landscapeRight", got)
	}
}

func TestClassifyRotationSequence(t *testing.T) {
	c := newClassifier()

	// Upright portrait, then a slow rotation toward landscape right.
	steps := []struct {
		g    [3]float64
		want Orientation
	}{
		{[3]float64{0, -1, 0}, OrientationPortrait},
		{[3]float64{0.4, -0.9, 0}, OrientationPortrait},
		{[3]float64{0.7, -0.71, 0}, OrientationPortrait}, // diagonal: hold
		{[3]float64{0.9, -0.4, 0}, OrientationLandscapeRight},
		{[3]float64{0.71, -0.7, 0}, OrientationLandscapeRight}, // diagonal again: hold
		{[3]float64{0.4, -0.9, 0}, OrientationPortrait},
	}
	for i, st := range steps {
		if got := c.classify(st.g); got != st.want {
			t.Fatalf("step %d g=%v: got=%v want=%v", i, st.g, got, st.want)
		}
	}
}
