package integrator

import (
	"math"

	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/types"
)

// Base reflectivity of dielectric surfaces; metals pull F0 towards their
// albedo instead.
var dielectricF0 = types.Vec3{0.04, 0.04, 0.04}

// GGX normal distribution term.
func distributionGGX(nDotH, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	denom := nDotH*nDotH*(a2-1) + 1
	return a2 / (float32(math.Pi) * denom * denom)
}

// Smith geometry term with the direct-lighting k remapping.
func geometrySmith(nDotV, nDotL, roughness float32) float32 {
	r := roughness + 1
	k := r * r / 8
	gv := nDotV / (nDotV*(1-k) + k)
	gl := nDotL / (nDotL*(1-k) + k)
	return gv * gl
}

// Schlick Fresnel approximation.
func fresnelSchlick(cosTheta float32, f0 types.Vec3) types.Vec3 {
	m := 1 - cosTheta
	if m < 0 {
		m = 0
	}
	m5 := m * m * m * m * m
	return f0.Add(types.Vec3{1 - f0[0], 1 - f0[1], 1 - f0[2]}.Mul(m5))
}

// fresnelF0 returns the material's base reflectivity.
func fresnelF0(material *scene.Material) types.Vec3 {
	return dielectricF0.Lerp(material.Albedo, material.Metallic)
}

// cookTorrance evaluates the combined diffuse+specular response of the
// material for one light direction. The caller multiplies the result with
// the incoming radiance; the n·l factor is already folded in.
func cookTorrance(n, view, light types.Vec3, material *scene.Material) types.Vec3 {
	nDotL := n.Dot(light)
	if nDotL <= 0 {
		return types.Vec3{}
	}
	half := view.Add(light).Normalize()
	nDotV := max32(n.Dot(view), 1e-4)
	nDotH := max32(n.Dot(half), 0)
	hDotV := max32(half.Dot(view), 0)

	ndf := distributionGGX(nDotH, material.Roughness)
	geo := geometrySmith(nDotV, nDotL, material.Roughness)
	fresnel := fresnelSchlick(hDotV, fresnelF0(material))

	specular := fresnel.Mul(ndf * geo / (4*nDotV*nDotL + 1e-4))

	// Energy not reflected specularly refracts into the diffuse lobe;
	// metals have no diffuse response.
	kd := types.Vec3{1 - fresnel[0], 1 - fresnel[1], 1 - fresnel[2]}.Mul(1 - material.Metallic)
	diffuse := kd.MulVec(material.Albedo).Mul(1 / float32(math.Pi))

	return diffuse.Add(specular).Mul(nDotL)
}
