package prompt

import (
	"strings"
	"testing"
)

func TestComposeMainOnlyReturnsMainDefault(t *testing.T) {
	result := Compose("", false, "", false, "")
	if result != DefaultMain {
		t.Fatalf("expected main default, got %q", result)
	}
}

func TestComposeMainCustomReplacesDefault(t *testing.T) {
	result := Compose("My custom main prompt", false, "", false, "")
	if result != "My custom main prompt" {
		t.Fatalf("expected custom text, got %q", result)
	}
	if strings.Contains(result, DefaultMain) {
		t.Fatalf("default main leaked into custom result")
	}
}

func TestComposeAdvancedEnabledUsesDefault(t *testing.T) {
	result := Compose("", true, "", false, "")
	if !strings.Contains(result, DefaultMain) || !strings.Contains(result, DefaultAdvanced) {
		t.Fatalf("expected main and advanced defaults, got %q", result)
	}
}

func TestComposeDictionaryEnabledUsesDefault(t *testing.T) {
	result := Compose("", false, "", true, "")
	if !strings.Contains(result, DefaultMain) || !strings.Contains(result, DefaultDictionary) {
		t.Fatalf("expected main and dictionary defaults, got %q", result)
	}
}

func TestComposeJoinsWithBlankLine(t *testing.T) {
	result := Compose("M", true, "A", true, "D")
	if result != "M\n\nA\n\nD" {
		t.Fatalf("expected M\\n\\nA\\n\\nD, got %q", result)
	}
}

func TestComposeOrderIsFixed(t *testing.T) {
	result := Compose("AAA", true, "BBB", true, "CCC")
	parts := strings.Split(result, "\n\n")
	if len(parts) != 3 || parts[0] != "AAA" || parts[1] != "BBB" || parts[2] != "CCC" {
		t.Fatalf("unexpected section order: %v", parts)
	}
}

func TestComposeSkippedSectionsLeaveNoGaps(t *testing.T) {
	result := Compose("Main", false, "", true, "Dictionary")
	if result != "Main\n\nDictionary" {
		t.Fatalf("expected Main\\n\\nDictionary, got %q", result)
	}
	for _, adv := range []bool{true, false} {
		for _, dict := range []bool{true, false} {
			out := Compose("M", adv, "A", dict, "D")
			if strings.Contains(out, "\n\n\n") {
				t.Fatalf("triple newline with advanced=%v dictionary=%v: %q", adv, dict, out)
			}
		}
	}
}

func TestComposeEmptyCustomBehavesLikeAbsent(t *testing.T) {
	if Compose("", false, "", false, "") != DefaultMain {
		t.Fatalf("empty main custom should use default")
	}
	withEmpty := Compose("", true, "", true, "")
	withAbsent := Compose("", true, "", true, "")
	if withEmpty != withAbsent {
		t.Fatalf("empty custom diverged from absent custom")
	}
}

func TestComposeDeterministic(t *testing.T) {
	a := Compose("M", true, "", true, "D")
	b := Compose("M", true, "", true, "D")
	if a != b {
		t.Fatalf("compose is not deterministic")
	}
}

func TestHolderDefaultsToMainPlusAdvanced(t *testing.T) {
	h := NewHolder()
	current := h.Current()
	if !strings.Contains(current, DefaultMain) || !strings.Contains(current, DefaultAdvanced) {
		t.Fatalf("default instruction missing main or advanced")
	}
	if strings.Contains(current, DefaultDictionary) {
		t.Fatalf("default instruction should not include dictionary")
	}
}

func TestHolderSetAndReset(t *testing.T) {
	h := NewHolder()
	enabled := true
	if err := h.Set(Sections{
		Main:       SectionInput{Content: "M"},
		Advanced:   SectionInput{Enabled: &enabled, Content: "A"},
		Dictionary: SectionInput{Enabled: &enabled, Content: "D"},
	}); err != nil {
		t.Fatalf("set error: %v", err)
	}
	if h.Current() != "M\n\nA\n\nD" {
		t.Fatalf("unexpected composed instruction: %q", h.Current())
	}
	h.Reset()
	if h.Current() != Compose("", true, "", false, "") {
		t.Fatalf("reset did not restore default instruction")
	}
}
