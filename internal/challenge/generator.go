// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package challenge

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Trollz1004/trustgate/internal/metrics"
)

// captchaCharset excludes visually ambiguous characters (0/O, 1/I/l).
const captchaCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const captchaLength = 6

// imageCategory is a fixed semantic category for IMAGE_SELECT challenges.
type imageCategory struct {
	name    string
	correct []string
	decoys  []string
}

var imageCategories = []imageCategory{
	{
		name:    "animals",
		correct: []string{"img_cat", "img_dog", "img_horse"},
		decoys:  []string{"img_car", "img_lamp", "img_bridge"},
	},
	{
		name:    "vehicles",
		correct: []string{"img_bus", "img_truck", "img_bicycle"},
		decoys:  []string{"img_apple", "img_chair", "img_cloud"},
	},
	{
		name:    "food",
		correct: []string{"img_pizza", "img_banana", "img_bread"},
		decoys:  []string{"img_boat", "img_guitar", "img_mountain"},
	},
	{
		name:    "buildings",
		correct: []string{"img_house", "img_tower", "img_barn"},
		decoys:  []string{"img_river", "img_fox", "img_kite"},
	},
}

var voicePhrases = []string{
	"the quick brown fox jumps over the lazy dog",
	"my voice is my passport verify me",
	"seven silver swans swam silently seaward",
	"fresh bread smells better in the morning",
}

var videoGestures = []string{
	"wave_right_hand",
	"nod_twice",
	"thumbs_up",
	"touch_left_ear",
}

var selfiePositions = []string{
	"head_turn_left",
	"head_turn_right",
	"head_tilt_up",
	"blink_twice",
}

// Generator produces typed, time-boxed challenges and registers them in the
// challenge store.
type Generator struct {
	store Store
}

// NewGenerator creates a challenge generator backed by the given store.
func NewGenerator(store Store) *Generator {
	return &Generator{store: store}
}

// Issue creates a challenge of the given type for the owner and registers it
// in the store. An unrecognized type falls back to CAPTCHA. The returned
// error can only come from store registration.
func (g *Generator) Issue(ctx context.Context, t Type, ownerUserID string) (Challenge, error) {
	t = Normalize(t)
	now := time.Now().UTC()

	ch := Challenge{
		ID:          uuid.New().String(),
		Type:        t,
		ScoreWeight: Weight(t),
		IssuedAt:    now,
		ExpiresAt:   now.Add(TTL(t)),
		OwnerUserID: ownerUserID,
	}

	switch t {
	case TypeCaptcha:
		code := randomCode(captchaLength)
		ch.Prompt = fmt.Sprintf("Type the following code: %s", code)
		ch.ExpectedAnswer = code

	case TypeMathPuzzle:
		ch.Prompt, ch.ExpectedAnswer = mathPuzzle()

	case TypeImageSelect:
		cat := imageCategories[rand.IntN(len(imageCategories))]
		ch.Options = shuffled(append(append([]string{}, cat.correct...), cat.decoys...))
		ch.Prompt = fmt.Sprintf("Select all images containing %s", cat.name)
		sorted := append([]string{}, cat.correct...)
		sort.Strings(sorted)
		ch.ExpectedAnswer = strings.Join(sorted, ",")

	case TypeVoicePhrase:
		phrase := voicePhrases[rand.IntN(len(voicePhrases))]
		ch.Prompt = fmt.Sprintf("Record yourself saying: %q", phrase)
		ch.ExpectedAnswer = phrase

	case TypeVideoGesture:
		gesture := videoGestures[rand.IntN(len(videoGestures))]
		ch.Prompt = fmt.Sprintf("Record a short video performing the gesture: %s", gesture)
		ch.ExpectedAnswer = gesture

	case TypeLiveSelfie:
		position := selfiePositions[rand.IntN(len(selfiePositions))]
		ch.Prompt = fmt.Sprintf("Take a live selfie performing: %s", position)
		ch.ExpectedAnswer = position
	}

	if err := g.store.Put(ctx, ch); err != nil {
		return Challenge{}, fmt.Errorf("register challenge: %w", err)
	}

	metrics.ChallengesIssued.WithLabelValues(string(t)).Inc()
	return ch, nil
}

// randomCode returns an n-character code from the captcha charset.
func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = captchaCharset[rand.IntN(len(captchaCharset))]
	}
	return string(b)
}

// mathPuzzle generates a random arithmetic prompt. Subtraction never yields
// a negative result and multiplication uses small two-digit factors.
func mathPuzzle() (prompt, answer string) {
	switch rand.IntN(3) {
	case 0:
		a, b := rand.IntN(90)+10, rand.IntN(90)+10
		return fmt.Sprintf("What is %d + %d?", a, b), fmt.Sprintf("%d", a+b)
	case 1:
		a := rand.IntN(90) + 10
		b := rand.IntN(a) + 1
		return fmt.Sprintf("What is %d - %d?", a, b), fmt.Sprintf("%d", a-b)
	default:
		a, b := rand.IntN(11)+10, rand.IntN(11)+10
		return fmt.Sprintf("What is %d × %d?", a, b), fmt.Sprintf("%d", a*b)
	}
}

// shuffled returns a shuffled copy of ids.
func shuffled(ids []string) []string {
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}
