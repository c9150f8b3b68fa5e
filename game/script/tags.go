package script

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/kasuganosora/scenarioplayer/game/condition"
	"github.com/kasuganosora/scenarioplayer/game/flag"
)

const maxChoiceOptions = 9

// tagBuilder turns a tag's attributes into an event. A non-nil error from
// the reader or the builder rejects the line.
type tagBuilder func(r *attrReader, line int) (Event, error)

// tagBuilders is the closed tag vocabulary.
var tagBuilders = map[string]tagBuilder{
	"bg":          buildBackground,
	"bg_show":     buildBgShow,
	"bg_move":     buildBgMove,
	"chara_show":  buildCharacterShow,
	"chara_shift": buildCharacterShift,
	"chara_move":  buildCharacterMove,
	"chara_hide":  buildCharacterHide,
	"bgm":         buildBgm,
	"bgm_pause":   buildBgmPause,
	"bgm_unpause": buildBgmUnpause,
	"se":          buildSe,
	"choice":      buildChoice,
	"scroll_stop": buildScrollStop,
	"event":       buildEventControl,
	"flag":        buildFlagSet,
	"if":          buildIfStart,
	"endif":       buildIfEnd,
	"fadeout":     buildFadeOut,
	"fadein":      buildFadeIn,
}

const maxSeconds = 600

func readFace(r *attrReader) Face {
	return Face{
		Eye:   r.optString("eye"),
		Mouth: r.optString("mouth"),
		Brow:  r.optString("brow"),
		Cheek: r.optString("cheek"),
	}
}

func buildBackground(r *attrReader, line int) (Event, error) {
	return &Background{at: at{line}, File: r.required("file")}, nil
}

func buildBgShow(r *attrReader, line int) (Event, error) {
	return &BgShow{
		at:   at{line},
		File: r.required("file"),
		Time: r.optFloat("time", 0, maxSeconds),
	}, nil
}

func buildBgMove(r *attrReader, line int) (Event, error) {
	if !r.has("x") && !r.has("y") {
		return nil, fmt.Errorf("missing required attribute x or y")
	}
	return &BgMove{
		at:   at{line},
		X:    r.optFloat("x", 0, 1),
		Y:    r.optFloat("y", 0, 1),
		Time: r.optFloat("time", 0, maxSeconds),
	}, nil
}

func buildCharacterShow(r *attrReader, line int) (Event, error) {
	return &CharacterShow{
		at:    at{line},
		Name:  r.required("name"),
		Face:  readFace(r),
		X:     r.optFloat("x", 0, 1),
		Y:     r.optFloat("y", 0, 1),
		Size:  r.optFloat("size", 0.01, 10),
		Blink: r.optBool("blink"),
		Fade:  r.optFloat("fade", 0, maxSeconds),
	}, nil
}

func buildCharacterShift(r *attrReader, line int) (Event, error) {
	ev := &CharacterShift{at: at{line}, Name: r.required("name"), Face: readFace(r)}
	if ev.Face.Empty() {
		return nil, fmt.Errorf("chara_shift needs at least one of eye, mouth, brow, cheek")
	}
	return ev, nil
}

func buildCharacterMove(r *attrReader, line int) (Event, error) {
	name := r.required("name")
	if !r.has("x") && !r.has("y") {
		return nil, fmt.Errorf("missing required attribute x or y")
	}
	return &CharacterMove{
		at:    at{line},
		Name:  name,
		X:     r.optFloat("x", 0, 1),
		Y:     r.optFloat("y", 0, 1),
		Time:  r.optFloat("time", 0, maxSeconds),
		Steps: r.optInt("steps", 0, 999),
		After: r.optEnum("after", "start", "keep", "end_step"),
	}, nil
}

func buildCharacterHide(r *attrReader, line int) (Event, error) {
	return &CharacterHide{
		at:   at{line},
		Name: r.required("name"),
		Fade: r.optFloat("fade", 0, maxSeconds),
	}, nil
}

func buildBgm(r *attrReader, line int) (Event, error) {
	return &Bgm{
		at:     at{line},
		File:   r.required("file"),
		Volume: r.optFloat("volume", 0, 1),
		Loop:   r.optBool("loop"),
	}, nil
}

func buildBgmPause(r *attrReader, line int) (Event, error) {
	return &BgmPause{at: at{line}, Fade: r.optFloat("fade", 0, maxSeconds)}, nil
}

func buildBgmUnpause(r *attrReader, line int) (Event, error) {
	return &BgmUnpause{at: at{line}, Fade: r.optFloat("fade", 0, maxSeconds)}, nil
}

func buildSe(r *attrReader, line int) (Event, error) {
	return &Se{
		at:     at{line},
		File:   r.required("file"),
		Volume: r.optFloat("volume", 0, 1),
		Repeat: r.optInt("repeat", 1, math.MaxInt16),
	}, nil
}

// buildChoice collects option1..option9 in numeric order. Gaps are allowed;
// blank options are not.
func buildChoice(r *attrReader, line int) (Event, error) {
	var opts []string
	for n := 1; n <= maxChoiceOptions; n++ {
		v, ok := r.lookup("option" + strconv.Itoa(n))
		if !ok {
			continue
		}
		if v == "" {
			return nil, fmt.Errorf("option%d is empty", n)
		}
		opts = append(opts, v)
	}
	if len(opts) < 2 {
		return nil, fmt.Errorf("choice needs at least 2 options, got %d", len(opts))
	}
	return &Choice{at: at{line}, Options: opts}, nil
}

func buildScrollStop(_ *attrReader, line int) (Event, error) {
	return &ScrollStop{at: at{line}}, nil
}

func buildEventControl(r *attrReader, line int) (Event, error) {
	ev := &EventControl{at: at{line}, Unlock: r.list("unlock"), Lock: r.list("lock")}
	if len(ev.Unlock) == 0 && len(ev.Lock) == 0 {
		return nil, fmt.Errorf("event needs unlock or lock")
	}
	return ev, nil
}

// flagName matches the identifiers conditions can reference.
var flagName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

func buildFlagSet(r *attrReader, line int) (Event, error) {
	name := r.required("name")
	if name != "" && !flagName.MatchString(name) {
		return nil, fmt.Errorf("invalid flag name %q", name)
	}
	raw, ok := r.lookup("value")
	if !ok {
		return nil, fmt.Errorf("missing required attribute value")
	}
	return &FlagSet{at: at{line}, Name: name, Value: flag.Parse(raw)}, nil
}

func buildIfStart(r *attrReader, line int) (Event, error) {
	src := r.required("condition")
	if r.err != nil {
		return nil, nil
	}
	expr, err := condition.Parse(src)
	if err != nil {
		return nil, err
	}
	return &IfStart{at: at{line}, Condition: expr}, nil
}

func buildIfEnd(_ *attrReader, line int) (Event, error) {
	return &IfEnd{at: at{line}}, nil
}

func buildFadeOut(r *attrReader, line int) (Event, error) {
	return &FadeOut{at: at{line}, Color: r.optColor("color"), Time: r.optFloat("time", 0, maxSeconds)}, nil
}

func buildFadeIn(r *attrReader, line int) (Event, error) {
	return &FadeIn{at: at{line}, Color: r.optColor("color"), Time: r.optFloat("time", 0, maxSeconds)}, nil
}
