package route

// Kind classifies a leg.
type Kind int

const (
	KindPickup Kind = iota
	KindDropoff
	KindRouteUpdate
	KindRelocationArrived
	KindEnroute
	KindEnrouteRelocation
)

var kindNames = map[Kind]string{
	KindPickup:            "PICKUP",
	KindDropoff:           "DROPOFF",
	KindRouteUpdate:       "ROUTE_UPDATE",
	KindRelocationArrived: "RELOCATION_ARRIVED",
	KindEnroute:           "ENROUTE",
	KindEnrouteRelocation: "ENROUTE_RELOCATION",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Moving reports whether legs of this kind travel along a track.
func (k Kind) Moving() bool { return k == KindEnroute || k == KindEnrouteRelocation }

// Interruptible reports whether a vehicle may abandon a leg of this kind midway.
func (k Kind) Interruptible() bool { return k.Moving() }

// Serves reports whether the kind is a passenger stop bound to a request.
func (k Kind) Serves() bool { return k == KindPickup || k == KindDropoff }
