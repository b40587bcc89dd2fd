package player

// Control is the rendering state of one transport button.
type Control struct {
	Disabled bool `json:"disabled"`
	Active   bool `json:"active"`
}

type ControlState struct {
	Shuffle   Control `json:"shuffle"`
	Previous  Control `json:"previous"`
	PlayPause Control `json:"playPause"`
	Next      Control `json:"next"`
	Loop      Control `json:"loop"`
	// Playing selects the pause icon over the play icon.
	Playing bool `json:"playing"`
}

func Controls(s State) ControlState {
	if s.Current() == nil {
		return ControlState{
			Shuffle:   Control{Disabled: true},
			Previous:  Control{Disabled: true},
			PlayPause: Control{Disabled: true},
			Next:      Control{Disabled: true},
			Loop:      Control{Disabled: true},
		}
	}
	return ControlState{
		Shuffle:   Control{Disabled: len(s.Queue) <= 1, Active: s.IsShuffling},
		Previous:  Control{Disabled: !s.HasPrevious()},
		PlayPause: Control{Active: s.IsPlaying},
		Next:      Control{Disabled: !s.HasNext()},
		Loop:      Control{Active: s.IsLooping},
		Playing:   s.IsPlaying,
	}
}
