package entry

// Patch is a partial update of the user-mutable fields. Nil fields are left
// unchanged.
type Patch struct {
	IsFavorited     *bool
	IsPinned        *bool
	BackgroundImage *string
	TextColor       *string
}

// Apply writes the set fields onto e.
func (p Patch) Apply(e *JournalEntry) {
	if e == nil {
		return
	}
	if p.IsFavorited != nil {
		e.IsFavorited = *p.IsFavorited
	}
	if p.IsPinned != nil {
		e.IsPinned = *p.IsPinned
	}
	if p.BackgroundImage != nil {
		e.BackgroundImage = *p.BackgroundImage
	}
	if p.TextColor != nil {
		e.TextColor = *p.TextColor
	}
}

// Matches reports whether e already carries every field the patch sets.
func (p Patch) Matches(e JournalEntry) bool {
	if p.IsFavorited != nil && e.IsFavorited != *p.IsFavorited {
		return false
	}
	if p.IsPinned != nil && e.IsPinned != *p.IsPinned {
		return false
	}
	if p.BackgroundImage != nil && e.BackgroundImage != *p.BackgroundImage {
		return false
	}
	if p.TextColor != nil && e.TextColor != *p.TextColor {
		return false
	}
	return true
}

// Fields renders the patch as a JSON merge map keyed like the wire format.
func (p Patch) Fields() map[string]any {
	fields := make(map[string]any, 4)
	if p.IsFavorited != nil {
		fields["isFavorited"] = *p.IsFavorited
	}
	if p.IsPinned != nil {
		fields["isPinned"] = *p.IsPinned
	}
	if p.BackgroundImage != nil {
		fields["backgroundImage"] = *p.BackgroundImage
	}
	if p.TextColor != nil {
		fields["textColor"] = *p.TextColor
	}
	return fields
}

// Bool is a helper for building patches.
func Bool(v bool) *bool { return &v }

// String is a helper for building patches.
func String(v string) *string { return &v }
