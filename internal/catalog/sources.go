package catalog

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ContentSource supplies the content of a catalog entry.
type ContentSource interface {
	Content(e Entry) (string, error)
}

// NewSource returns an AssetSource rooted at assetsDir, or a
// PlaceholderSource when assetsDir is empty.
func NewSource(assetsDir string) ContentSource {
	if assetsDir == "" {
		return PlaceholderSource{}
	}
	return AssetSource{Dir: assetsDir}
}

// AssetSource reads entry content from <Dir>/<assetPath>.
type AssetSource struct {
	Dir string
}

// Content reads the asset file. assetPath must be relative and stay inside Dir.
func (s AssetSource) Content(e Entry) (string, error) {
	clean := path.Clean(strings.ReplaceAll(e.AssetPath, `\`, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("asset path escapes assets dir: %s", e.AssetPath)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, filepath.FromSlash(clean)))
	if err != nil {
		return "", fmt.Errorf("read asset %s: %w", e.AssetPath, err)
	}
	return string(data), nil
}

// PlaceholderSource generates a fixed demo preset for every entry.
type PlaceholderSource struct{}

// Content returns the placeholder preset body.
func (PlaceholderSource) Content(Entry) (string, error) {
	return placeholderPreset, nil
}

const placeholderPreset = `[preset00]
fRating=3.000000
fGammaAdj=2.000000
fDecay=0.980000
fVideoEchoZoom=1.000000
fVideoEchoAlpha=0.500000
nVideoEchoOrientation=0
nWaveMode=0
bAdditiveWaves=0
bWaveDots=0
bWaveThick=0
bModWaveAlphaByVolume=0
bMaximizeWaveColor=1
bTexWrap=1
bDarkenCenter=0
bRedBlueStereo=0
bBrighten=0
bDarken=0
bSolarize=0
bInvert=0
fWaveAlpha=0.800000
fWaveScale=1.000000
fWaveSmoothing=0.750000
fWaveParam=0.000000
fModWaveAlphaStart=0.750000
fModWaveAlphaEnd=0.950000
fWarpAnimSpeed=1.000000
fWarpScale=1.000000
fZoomExponent=1.000000
fShader=0.000000
zoom=1.000000
rot=0.000000
cx=0.500000
cy=0.500000
dx=0.000000
dy=0.000000
warp=1.000000
sx=1.000000
sy=1.000000
wave_r=0.500000
wave_g=0.500000
wave_b=0.500000
wave_x=0.500000
wave_y=0.500000
ob_size=0.010000
ob_r=0.000000
ob_g=0.000000
ob_b=0.000000
ob_a=0.000000
ib_size=0.010000
ib_r=0.250000
ib_g=0.250000
ib_b=0.250000
ib_a=0.000000
nMotionVectorsX=12.000000
nMotionVectorsY=9.000000
mv_dx=0.000000
mv_dy=0.000000
mv_l=0.900000
mv_r=1.000000
mv_g=1.000000
mv_b=1.000000
mv_a=0.000000
per_frame_1=wave_r = wave_r + 0.400*( 0.60*sin(0.933*time) + 0.40*sin(1.045*time) );
per_frame_2=wave_g = wave_g + 0.400*( 0.60*sin(0.900*time) + 0.40*sin(0.956*time) );
per_frame_3=wave_b = wave_b + 0.400*( 0.60*sin(0.910*time) + 0.40*sin(0.920*time) );
per_frame_4=zoom = zoom + 0.023*( 0.60*sin(0.339*time) + 0.40*sin(0.276*time) );
per_frame_5=rot = rot + 0.030*( 0.60*sin(0.381*time) + 0.40*sin(0.579*time) );
per_frame_6=cx = cx + 0.110*( 0.60*sin(0.374*time) + 0.40*sin(0.294*time) );
per_frame_7=cy = cy + 0.110*( 0.60*sin(0.393*time) + 0.40*sin(0.223*time) );
`
