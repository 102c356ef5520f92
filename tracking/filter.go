package tracking

// pdFilter computes one axis of the motion command from the current
// angular error, the error stored on the previous tick, and the elapsed
// time between the two. Derivative damping keeps the head from
// overshooting when the target moves quickly across the frame.
func pdFilter(err, prevErr, dt, pGain, dGain float64) float64 {
	diff := (err - prevErr) / dt
	return err*pGain + diff*dGain
}
