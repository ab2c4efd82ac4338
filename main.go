package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/volrend/go-volrend/pkg/core"
	"github.com/volrend/go-volrend/pkg/grid"
	"github.com/volrend/go-volrend/pkg/integrate"
	"github.com/volrend/go-volrend/pkg/march"
)

// The demo renders a procedural density field end to end through the kernel
// pipeline: build a density grid, pack it into an occupancy cascade, march
// camera rays through the cascade, evaluate the field at the sample
// positions, and composite the samples into an image.

func main() {
	width := flag.Int("width", 400, "Output image width")
	height := flag.Int("height", 400, "Output image height")
	gridRes := flag.Int("grid", 128, "Occupancy grid resolution per cascade level")
	levels := flag.Int("levels", 2, "Number of cascade levels")
	bound := flag.Float64("bound", 1.0, "Scene half-extent at cascade level 0")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *help {
		fmt.Println("Occupancy-grid volume renderer demo")
		fmt.Println("Usage: volrend [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Output will be saved to output/render_<timestamp>.png")
		return
	}

	logger := core.NewDefaultLogger()
	logger.Printf("Building %d-level occupancy cascade at %d^3...\n", *levels, *gridRes)

	b := float32(*bound)
	field := newFogField(b)
	cascade, err := buildCascade(field, *levels, *gridRes, b)
	if err != nil {
		fmt.Printf("Error building cascade: %v\n", err)
		return
	}

	origins, dirs := cameraRays(*width, *height, b)
	desc := core.MarchingDesc{
		NRays:           uint32(*width * *height),
		MaxNSamples:     1024,
		K:               uint32(*levels),
		G:               uint32(*gridRes),
		Bound:           b,
		StepsizePortion: 1.0 / 256,
	}

	startTime := time.Now()
	samples, err := march.MarchRays(origins, dirs, nil, cascade, desc)
	if err != nil {
		fmt.Printf("Error marching rays: %v\n", err)
		return
	}
	logger.Printf("Marched %d rays into %d samples in %v\n",
		desc.NRays, samples.TotalSamples, time.Since(startTime))

	densities, colors := field.Evaluate(samples)
	intDesc := core.IntegratingDesc{NRays: desc.NRays, TotalSamples: samples.TotalSamples}
	out, err := integrate.IntegrateRays(samples.RayStartIdx, samples.RayNSamples,
		samples.Ts, samples.Dss, densities, colors, intDesc)
	if err != nil {
		fmt.Printf("Error integrating rays: %v\n", err)
		return
	}

	bgs := make([]float32, 3*desc.NRays)
	for i := range bgs {
		bgs[i] = 1 // white background
	}
	if err := integrate.CompositeBackground(out.RGBs, out.Opacities, bgs, intDesc); err != nil {
		fmt.Printf("Error compositing background: %v\n", err)
		return
	}
	logger.Printf("Render completed in %v (%d samples composited)\n",
		time.Since(startTime), out.MeasuredBatchSize)

	img := image.NewRGBA(image.Rect(0, 0, *width, *height))
	for y := 0; y < *height; y++ {
		for x := 0; x < *width; x++ {
			r := y**width + x
			img.Set(x, y, color.RGBA{
				R: toByte(out.RGBs[3*r]),
				G: toByte(out.RGBs[3*r+1]),
				B: toByte(out.RGBs[3*r+2]),
				A: 255,
			})
		}
	}

	outputDir := "output"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		return
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("render_%s.png", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Error creating file: %v\n", err)
		return
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		fmt.Printf("Error saving PNG: %v\n", err)
		return
	}
	fmt.Printf("Render saved as %s\n", filename)
}

// fogField is a smooth analytic density field standing in for the neural
// network: a soft core of colored fog around the origin plus a thin shell.
type fogField struct {
	bound float32
}

func newFogField(bound float32) *fogField {
	return &fogField{bound: bound}
}

// Density returns the field's density at a world position.
func (f *fogField) Density(p mgl32.Vec3) float32 {
	r := p.Len() / f.bound
	fog := 8 * math32.Exp(-4*r*r)
	shell := 12 * math32.Exp(-120*(r-0.8)*(r-0.8))
	return fog + shell
}

// Color returns the field's emitted color at a world position.
func (f *fogField) Color(p mgl32.Vec3) (r, g, b float32) {
	n := p.Mul(1 / f.bound)
	return 0.5 + 0.5*n[0], 0.5 + 0.5*n[1], 0.5 + 0.5*n[2]
}

// Evaluate computes per-sample density and color for a marched batch.
func (f *fogField) Evaluate(samples *march.Samples) (densities, colors []float32) {
	total := int(samples.TotalSamples)
	densities = make([]float32, total)
	colors = make([]float32, 3*total)
	for i := 0; i < total; i++ {
		p := mgl32.Vec3{samples.Positions[3*i], samples.Positions[3*i+1], samples.Positions[3*i+2]}
		densities[i] = f.Density(p)
		r, g, b := f.Color(p)
		colors[3*i] = r
		colors[3*i+1] = g
		colors[3*i+2] = b
	}
	return densities, colors
}

// buildCascade samples the field at every cell center of every cascade level
// and packs the result into an occupancy bitfield.
func buildCascade(field *fogField, levels, gridRes int, bound float32) (*grid.Cascade, error) {
	cascade, err := grid.NewCascade(levels, gridRes)
	if err != nil {
		return nil, err
	}
	density := make([]float32, cascade.LevelCells())
	for level := 0; level < levels; level++ {
		extent := grid.LevelExtent(bound, level)
		cellWidth := cascade.CellWidth(bound, level)
		for z := uint32(0); z < uint32(gridRes); z++ {
			for y := uint32(0); y < uint32(gridRes); y++ {
				for x := uint32(0); x < uint32(gridRes); x++ {
					center := mgl32.Vec3{
						-extent + (float32(x)+0.5)*cellWidth,
						-extent + (float32(y)+0.5)*cellWidth,
						-extent + (float32(z)+0.5)*cellWidth,
					}
					density[grid.EncodeMorton3(x, y, z)] = field.Density(center)
				}
			}
		}
		packDesc := core.PackbitsDesc{
			NBytes:           uint32(cascade.LevelBytes()),
			DensityThreshold: 0.01,
		}
		if err := grid.PackDensityIntoBits(density, cascade.Level(level), packDesc); err != nil {
			return nil, err
		}
	}
	return cascade, nil
}

// cameraRays builds one normalized pinhole ray per pixel, looking at the
// origin from outside the scene bound.
func cameraRays(width, height int, bound float32) (origins, dirs []float32) {
	eye := mgl32.Vec3{0, 0, 3 * bound}
	fov := float32(0.8) // vertical field of view in radians
	aspect := float32(width) / float32(height)
	halfH := math32.Tan(fov / 2)
	halfW := aspect * halfH

	n := width * height
	origins = make([]float32, 3*n)
	dirs = make([]float32, 3*n)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			u := (2*(float32(x)+0.5)/float32(width) - 1) * halfW
			v := (1 - 2*(float32(y)+0.5)/float32(height)) * halfH
			d := mgl32.Vec3{u, v, -1}.Normalize()
			r := y*width + x
			origins[3*r] = eye[0]
			origins[3*r+1] = eye[1]
			origins[3*r+2] = eye[2]
			dirs[3*r] = d[0]
			dirs[3*r+1] = d[1]
			dirs[3*r+2] = d[2]
		}
	}
	return origins, dirs
}

func toByte(v float32) uint8 {
	v = core.Clamp(v, 0, 1)
	// Gamma correct for display
	return uint8(math32.Pow(v, 1/2.2)*255 + 0.5)
}
