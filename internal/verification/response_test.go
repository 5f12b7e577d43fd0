// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package verification

import (
	"testing"

	"github.com/Trollz1004/trustgate/internal/challenge"
)

func TestResponseValidFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp Response
		typ  challenge.Type
		want bool
	}{
		{"text for captcha", TextResponse{}, challenge.TypeCaptcha, true},
		{"text for math", TextResponse{}, challenge.TypeMathPuzzle, true},
		{"text for voice sample", TextResponse{}, challenge.TypeVoicePhrase, true},
		{"text for image select", TextResponse{}, challenge.TypeImageSelect, false},
		{"selection for image select", SelectionResponse{}, challenge.TypeImageSelect, true},
		{"selection for captcha", SelectionResponse{}, challenge.TypeCaptcha, false},
		{"selection for selfie", SelectionResponse{}, challenge.TypeLiveSelfie, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.resp.validFor(tt.typ); got != tt.want {
				t.Errorf("validFor(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestEvaluateText(t *testing.T) {
	t.Parallel()

	ch := challenge.Challenge{Type: challenge.TypeCaptcha, ExpectedAnswer: "XK7P2M"}

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"exact", "XK7P2M", true},
		{"lowercase", "xk7p2m", true},
		{"surrounding whitespace", "  XK7P2M \n", true},
		{"wrong", "XK7P2N", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := evaluate(ch, TextResponse{Text: tt.text}); got != tt.want {
				t.Errorf("evaluate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestEvaluateSelection(t *testing.T) {
	t.Parallel()

	// Expected answers are stored as sorted comma-joined ids.
	ch := challenge.Challenge{Type: challenge.TypeImageSelect, ExpectedAnswer: "img_cat,img_dog,img_horse"}

	tests := []struct {
		name string
		ids  []string
		want bool
	}{
		{"exact order", []string{"img_cat", "img_dog", "img_horse"}, true},
		{"different order", []string{"img_horse", "img_cat", "img_dog"}, true},
		{"whitespace and empties ignored", []string{" img_dog ", "", "img_cat", "img_horse"}, true},
		{"missing one", []string{"img_cat", "img_dog"}, false},
		{"extra decoy", []string{"img_cat", "img_dog", "img_horse", "img_car"}, false},
		{"none", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := evaluate(ch, SelectionResponse{SelectedIDs: tt.ids}); got != tt.want {
				t.Errorf("evaluate(%v) = %v, want %v", tt.ids, got, tt.want)
			}
		})
	}
}

func TestSample(t *testing.T) {
	t.Parallel()

	if got := sample(TextResponse{Text: "  blob-ref-42 "}); got != "blob-ref-42" {
		t.Errorf("sample = %q, want %q", got, "blob-ref-42")
	}
	if got := sample(SelectionResponse{SelectedIDs: []string{"x"}}); got != "" {
		t.Errorf("sample from selection = %q, want empty", got)
	}
}
