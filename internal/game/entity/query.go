package entity

// FindByName scans for the next entity whose targetname equals name,
// starting after `after` (or from slot 0 when after is nil). Chaining the
// previous result iterates every match in index order. An empty name
// never matches.
func (t *Table) FindByName(name string, after Entity) Entity {
	if name == "" {
		return nil
	}
	return t.find(after, func(b *Base) bool { return b.Targetname == name })
}

// FindByClassname is FindByName keyed on classname.
func (t *Table) FindByClassname(classname string, after Entity) Entity {
	if classname == "" {
		return nil
	}
	return t.find(after, func(b *Base) bool { return b.Classname == classname })
}

// FindByNameRandom returns a uniformly chosen entity with targetname name,
// or nil when there is none.
func (t *Table) FindByNameRandom(name string) Entity {
	if name == "" {
		return nil
	}
	return t.pick(func(b *Base) bool { return b.Targetname == name })
}

// FindByClassnameRandom returns a uniformly chosen entity of classname.
func (t *Table) FindByClassnameRandom(classname string) Entity {
	if classname == "" {
		return nil
	}
	return t.pick(func(b *Base) bool { return b.Classname == classname })
}

// FindAllByClassname collects every match in index order.
func (t *Table) FindAllByClassname(classname string) []Entity {
	var out []Entity
	for e := t.FindByClassname(classname, nil); e != nil; e = t.FindByClassname(classname, e) {
		out = append(out, e)
	}
	return out
}

func (t *Table) find(after Entity, match func(*Base) bool) Entity {
	start := 0
	if after != nil {
		start = after.BaseEntity().index + 1
	}
	for i := start; i < len(t.slots); i++ {
		e := t.slots[i].ent
		if e != nil && match(e.BaseEntity()) {
			return e
		}
	}
	return nil
}

func (t *Table) pick(match func(*Base) bool) Entity {
	var matches []Entity
	for i := range t.slots {
		if e := t.slots[i].ent; e != nil && match(e.BaseEntity()) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	return matches[t.rng.Intn(len(matches))]
}
