package domain

// ResolveLocation returns the first location's handle, or the virtual location handle when there is none
func ResolveLocation(locations []Location) string {
	handle, _ := DefaultPolicy.ResolveLocation(locations)
	return handle
}

// ResolveLocation picks the positional first location. With no locations the
// result depends on the fallback mode: the virtual handle, or ok == false.
func (p Policy) ResolveLocation(locations []Location) (handle string, ok bool) {
	if len(locations) > 0 {
		return locations[0].Handle, true
	}
	if p.Fallback == FallbackVirtual {
		return p.VirtualLocationHandle, true
	}
	return "", false
}
