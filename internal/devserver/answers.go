package devserver

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lazypandaa/gramvaani-client/internal/wav"
)

// basePrices are the canned per-quintal prices used for market lookups.
var basePrices = map[string]int{
	"wheat":     2000,
	"rice":      2400,
	"corn":      1600,
	"barley":    1800,
	"sugarcane": 5000,
	"cotton":    6000,
	"soybean":   4400,
	"mustard":   5600,
	"onion":     3000,
	"potato":    1400,
	"tomato":    3600,
	"chili":     8000,
}

const defaultPrice = 2500

func cropPriceAnswer(crop, market string) string {
	if market == "" {
		market = "local"
	}
	price, ok := basePrices[strings.ToLower(strings.TrimSpace(crop))]
	if !ok {
		price = defaultPrice
	}
	return fmt.Sprintf("Current price of %s in %s market is ₹%d per quintal", crop, market, price)
}

func weatherAnswer(city string) string {
	if city == "" {
		city = "your area"
	}
	return fmt.Sprintf("Weather in %s: 28°C, partly cloudy with light winds. Good conditions for field work.", city)
}

func schemeAnswer(topic string) string {
	if topic == "" {
		return "PM-KISAN provides ₹6000 per year to eligible farmer families in three installments. Visit your nearest Common Service Centre to apply."
	}
	return fmt.Sprintf("For %s, check the PM-KISAN and Kisan Credit Card schemes. Visit your nearest Common Service Centre to apply.", topic)
}

func reverseGeocodeAnswer(latitude, longitude float64) string {
	return fmt.Sprintf("Coordinates: %.4f, %.4f", latitude, longitude)
}

func textAnswer(text string) string {
	return fmt.Sprintf("You asked: %q. For detailed guidance please consult your local agriculture office.", text)
}

// transcribe fakes speech recognition from the payload size.
func transcribe(audioSize int) string {
	switch {
	case audioSize > 100000:
		return "What is the best time to sow wheat in my region this season?"
	case audioSize > 20000:
		return "Tell me today's mandi prices."
	case audioSize > 1000:
		return "What is the weather today?"
	default:
		return "Hello"
	}
}

// synthesize produces a short spoken-answer placeholder: a 440 Hz tone in a
// WAV container, base64 encoded the way the real backend embeds audio.
func synthesize(sampleRate int) (string, error) {
	pcm := sineTonePCM16LE(440, sampleRate, 500*time.Millisecond, 0.2)
	encoded, err := wav.Encode(pcm, sampleRate, 1)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encoded), nil
}

func sineTonePCM16LE(freqHz int, sampleRateHz int, d time.Duration, amp float64) []byte {
	if sampleRateHz <= 0 || d <= 0 || freqHz <= 0 {
		return nil
	}
	if amp <= 0 || amp > 1.0 {
		amp = 0.2
	}
	samples := int(float64(sampleRateHz) * d.Seconds())
	if samples <= 0 {
		samples = 1
	}
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		t := float64(i) / float64(sampleRateHz)
		v := amp * math.Sin(2*math.Pi*float64(freqHz)*t)
		sample := int16(v * math.MaxInt16)
		out[2*i] = byte(sample)
		out[2*i+1] = byte(sample >> 8)
	}
	return out
}
