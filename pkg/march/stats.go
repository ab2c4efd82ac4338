package march

// BatchStats tracks running statistics of marched sample batches so a
// training loop can size its next ray batch: marching emits a variable
// number of samples, and keeping the product n_rays * samples/ray near a
// target batch size keeps network evaluation fully utilized.
type BatchStats struct {
	NRays int // ray count to use for the next batch

	// Running means over recent batches.
	MeanSamplesPerRay          float64 // as marched, before compositing early-exit
	MeanEffectiveSamplesPerRay float64 // as composited (transmittance cutoff drops the tail)

	decay float64
}

// NewBatchStats seeds the statistics from a target total batch size and an
// initial samples-per-ray guess.
func NewBatchStats(targetBatchSize, initialSamplesPerRay int) *BatchStats {
	if initialSamplesPerRay <= 0 {
		initialSamplesPerRay = 1
	}
	return &BatchStats{
		NRays:                      targetBatchSize / initialSamplesPerRay,
		MeanSamplesPerRay:          float64(initialSamplesPerRay),
		MeanEffectiveSamplesPerRay: float64(initialSamplesPerRay),
		decay:                      0.95,
	}
}

// Update folds one batch's measured sample totals into the running means.
// marched is the total before compositing (MeasuredBatchSizeBeforeCompaction);
// composited is the total that contributed to ray colors.
func (bs *BatchStats) Update(nRays, marched, composited int) {
	if nRays <= 0 {
		return
	}
	perRay := float64(marched) / float64(nRays)
	effective := float64(composited) / float64(nRays)
	bs.MeanSamplesPerRay = bs.decay*bs.MeanSamplesPerRay + (1-bs.decay)*perRay
	bs.MeanEffectiveSamplesPerRay = bs.decay*bs.MeanEffectiveSamplesPerRay + (1-bs.decay)*effective
}

// Commit recomputes the ray count for the next batch so that the expected
// marched total stays near the target batch size.
func (bs *BatchStats) Commit(targetBatchSize int) {
	mean := bs.MeanSamplesPerRay
	if mean < 1 {
		mean = 1
	}
	nRays := int(float64(targetBatchSize) / mean)
	if nRays < 1 {
		nRays = 1
	}
	bs.NRays = nRays
}
