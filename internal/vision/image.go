package vision

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/nfnt/resize"
)

const jpegQuality = 85

// encodedFrame is a frame image ready to embed in a chat message
type encodedFrame struct {
	DataURI  string
	Exposure Exposure
}

// encodeFrame loads the image at path, downscales it to maxWidth and returns
// it as a base64 JPEG data URI.
func encodeFrame(path string, maxWidth int) (*encodedFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &encodedFrame{
		DataURI:  "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Exposure: measureExposure(img),
	}, nil
}

// Exposure holds simple pixel statistics of a frame, each in [0,1]
type Exposure struct {
	Brightness   float64
	Contrast     float64
	Colorfulness float64
}

func (e Exposure) String() string {
	return fmt.Sprintf("brightness %.2f, contrast %.2f, colorfulness %.2f",
		e.Brightness, e.Contrast, e.Colorfulness)
}

func measureExposure(img image.Image) Exposure {
	bounds := img.Bounds()
	pixels := float64(bounds.Dx() * bounds.Dy())
	if pixels == 0 {
		return Exposure{}
	}

	var rSum, gSum, bSum, lumSum, lumSqSum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			rf, gf, bf := float64(r>>8), float64(g>>8), float64(b>>8)
			rSum += rf
			gSum += gf
			bSum += bf

			lum := 0.299*rf + 0.587*gf + 0.114*bf
			lumSum += lum
			lumSqSum += lum * lum
		}
	}

	rMean, gMean, bMean := rSum/pixels, gSum/pixels, bSum/pixels
	mean := lumSum / pixels
	variance := math.Max(0, lumSqSum/pixels-mean*mean)

	return Exposure{
		Brightness: mean / 255.0,
		// typical stddev is 0-60
		Contrast:     math.Min(1.0, math.Sqrt(variance)/60.0),
		Colorfulness: math.Min(1.0, (math.Abs(rMean-gMean)+math.Abs(gMean-bMean)+math.Abs(bMean-rMean))/255.0),
	}
}
