package util

import (
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Параметры октавного шума Перлина
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// PerlinField - двумерное поле шума Перлина с собственным сидом и масштабом.
// После создания только читается, поэтому безопасно для нескольких горутин.
type PerlinField struct {
	noise *perlin.Perlin
	scale float64
}

// NewPerlinField создаёт поле. scale - размер характерной детали в блоках.
func NewPerlinField(seed int64, scale float64) *PerlinField {
	return &PerlinField{
		noise: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
		scale: scale,
	}
}

// Raw возвращает значение шума примерно в диапазоне [-1, 1]
func (f *PerlinField) Raw(x, y float64) float64 {
	return f.noise.Noise2D(x/f.scale, y/f.scale)
}

// At возвращает значение шума в диапазоне [0, 1].
// Шум Перлина редко выходит за ±0.6, поэтому значение растягивается.
func (f *PerlinField) At(x, y float64) float64 {
	return Clamp01((f.Raw(x, y)*1.6 + 1) / 2)
}

// SimplexField - трёхмерный симплекс-шум (opensimplex)
type SimplexField struct {
	noise opensimplex.Noise
	scale float64
}

// NewSimplexField создаёт трёхмерное поле с масштабом scale
func NewSimplexField(seed int64, scale float64) *SimplexField {
	return &SimplexField{noise: opensimplex.New(seed), scale: scale}
}

// At возвращает значение шума в диапазоне [-1, 1]
func (f *SimplexField) At(x, y, z float64) float64 {
	return f.noise.Eval3(x/f.scale, y/f.scale, z/f.scale)
}

// Clamp01 ограничивает значение отрезком [0, 1]
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Mix64 - финализатор splitmix64: хорошее перемешивание битов
func Mix64(z uint64) uint64 {
	z += 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Hash2 детерминированно смешивает сид, соль и пару целых координат
func Hash2(seed uint32, salt uint64, x, y int) uint64 {
	h := Mix64(uint64(seed) ^ salt<<32)
	h = Mix64(h ^ uint64(uint32(int32(x))))
	return Mix64(h ^ uint64(uint32(int32(y)))<<1)
}

// Hash01 возвращает детерминированное псевдослучайное число в [0, 1)
func Hash01(seed uint32, salt uint64, x, y int) float64 {
	return float64(Hash2(seed, salt, x, y)>>11) / (1 << 53)
}
