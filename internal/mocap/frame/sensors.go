package frame

// Sensor labels used by the tracking setup.
const (
	Head      = "head"
	LeftHand  = "lHand"
	RightHand = "rHand"

	LeftForeArm   = "lForeArm"
	RightForeArm  = "rForeArm"
	LeftUpperArm  = "lUpperArm"
	RightUpperArm = "rUpperArm"
	Spine         = "spine"
	Hip           = "hip"
	LeftLeg       = "lLeg"
	RightLeg      = "rLeg"
	LeftFoot      = "lFoot"
	RightFoot     = "rFoot"
)

// Kind classifies a sensor by the hardware that carries it.
type Kind int

const (
	// KindTracker is any sensor that is neither the headset nor a hand controller.
	KindTracker Kind = iota
	// KindHMD is the head-mounted display.
	KindHMD
	// KindController is a handheld controller.
	KindController
)

func (k Kind) String() string {
	switch k {
	case KindHMD:
		return "hmd"
	case KindController:
		return "controller"
	default:
		return "tracker"
	}
}

// KindOf returns the hardware kind for a sensor label.
func KindOf(label string) Kind {
	switch label {
	case Head:
		return KindHMD
	case LeftHand, RightHand:
		return KindController
	default:
		return KindTracker
	}
}

// AllSensors returns every known sensor label in sorted order.
func AllSensors() []string {
	return []string{
		Head, Hip, LeftFoot, LeftForeArm, LeftHand, LeftLeg, LeftUpperArm,
		RightFoot, RightForeArm, RightHand, RightLeg, RightUpperArm, Spine,
	}
}
