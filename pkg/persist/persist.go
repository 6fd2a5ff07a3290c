// Package persist saves scenes to 3MF and loads them back.
//
// Every visible mesh node becomes one object holding its local-space mesh
// and one build item carrying its world transform. Hidden nodes and the
// hierarchy itself are not stored; loading yields a flat list of nodes.
package persist

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hpinc/go3mf"

	"github.com/chazu/platen/pkg/logging"
	"github.com/chazu/platen/pkg/mesh"
	"github.com/chazu/platen/pkg/scene"
)

const materialsID = 1

var objectTypes = map[scene.OutputType]go3mf.ObjectType{
	scene.OutputNormal:  go3mf.ObjectTypeModel,
	scene.OutputHole:    go3mf.ObjectTypeOther,
	scene.OutputSupport: go3mf.ObjectTypeSupport,
	scene.OutputSolid:   go3mf.ObjectTypeSolidSupport,
}

// Save writes the visible meshes under roots as a 3MF package.
func Save(w io.Writer, roots ...*scene.Node) error {
	model := Model(roots...)
	if err := go3mf.NewEncoder(w).Encode(model); err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}
	log := logging.For("persist")
	log.Debug().Int("objects", len(model.Resources.Objects)).Msg("saved 3mf")
	return nil
}

// SaveFile writes roots to path.
func SaveFile(path string, roots ...*scene.Node) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	if err := Save(f, roots...); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

// Model converts the visible meshes under roots to a 3MF model.
func Model(roots ...*scene.Node) *go3mf.Model {
	model := &go3mf.Model{Units: go3mf.UnitMillimeter}
	materials := &go3mf.BaseMaterials{ID: materialsID}
	colorIndex := map[string]uint32{}

	id := uint32(materialsID)
	for item := range scene.VisibleMeshes(roots...) {
		if item.Mesh.IsEmpty() {
			continue
		}
		id++
		obj := &go3mf.Object{
			ID:   id,
			Name: item.Node.Name,
			Type: objectTypes[item.Node.OutputType],
			Mesh: toMesh(item.Mesh),
		}
		if c := item.Node.Color; c != "" {
			idx, ok := colorIndex[c]
			if !ok {
				rgba, err := parseColor(c)
				if err == nil {
					idx = uint32(len(materials.Materials))
					materials.Materials = append(materials.Materials, go3mf.Base{Name: c, Color: rgba})
					colorIndex[c] = idx
					ok = true
				}
			}
			if ok {
				obj.PID = materialsID
				obj.PIndex = idx
			}
		}
		model.Resources.Objects = append(model.Resources.Objects, obj)
		model.Build.Items = append(model.Build.Items, &go3mf.Item{
			ObjectID:  id,
			Transform: toMatrix(item.World),
		})
	}
	if len(materials.Materials) > 0 {
		model.Resources.Assets = append(model.Resources.Assets, materials)
	}
	return model
}

func toMesh(m *mesh.Mesh) *go3mf.Mesh {
	out := &go3mf.Mesh{}
	out.Vertices.Vertex = make([]go3mf.Point3D, len(m.Vertices))
	for i, v := range m.Vertices {
		out.Vertices.Vertex[i] = go3mf.Point3D{float32(v[0]), float32(v[1]), float32(v[2])}
	}
	out.Triangles.Triangle = make([]go3mf.Triangle, len(m.Faces))
	for i, f := range m.Faces {
		out.Triangles.Triangle[i] = go3mf.Triangle{V1: uint32(f[0]), V2: uint32(f[1]), V3: uint32(f[2])}
	}
	return out
}

// toMatrix and fromMatrix copy element-wise; both libraries keep the
// translation in elements 12 to 14.
func toMatrix(m mgl64.Mat4) go3mf.Matrix {
	var out go3mf.Matrix
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}

func fromMatrix(m go3mf.Matrix) mgl64.Mat4 {
	if m == (go3mf.Matrix{}) {
		return mgl64.Ident4()
	}
	var out mgl64.Mat4
	for i := range m {
		out[i] = float64(m[i])
	}
	return out
}

func parseColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("persist: bad color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("persist: bad color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func formatColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Load reads a 3MF package and returns one node per build item.
func Load(r io.ReaderAt, size int64) ([]*scene.Node, error) {
	var model go3mf.Model
	if err := go3mf.NewDecoder(r, size).Decode(&model); err != nil {
		return nil, fmt.Errorf("persist: decode: %w", err)
	}
	nodes, err := FromModel(&model)
	if err != nil {
		return nil, err
	}
	log := logging.For("persist")
	log.Debug().Int("nodes", len(nodes)).Msg("loaded 3mf")
	return nodes, nil
}

// LoadFile reads path.
func LoadFile(path string) ([]*scene.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return Load(bytes.NewReader(data), int64(len(data)))
}

// FromModel converts build items of a decoded model to scene nodes. Items
// referencing objects without a mesh are skipped.
func FromModel(model *go3mf.Model) ([]*scene.Node, error) {
	objects := make(map[uint32]*go3mf.Object, len(model.Resources.Objects))
	for _, o := range model.Resources.Objects {
		objects[o.ID] = o
	}
	colors := map[uint32][]go3mf.Base{}
	for _, a := range model.Resources.Assets {
		if bm, ok := a.(*go3mf.BaseMaterials); ok {
			colors[bm.ID] = bm.Materials
		}
	}

	var out []*scene.Node
	for i, item := range model.Build.Items {
		obj, ok := objects[item.ObjectID]
		if !ok {
			return nil, fmt.Errorf("persist: build item %d references missing object %d", i, item.ObjectID)
		}
		if obj.Mesh == nil {
			continue
		}
		m := fromMesh(obj.Mesh)
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("persist: object %d: %w", obj.ID, err)
		}
		n := scene.New(obj.Name, m)
		n.SetLocalTransform(fromMatrix(item.Transform))
		for t, ot := range objectTypes {
			if ot == obj.Type {
				n.OutputType = t
			}
		}
		if bases, ok := colors[obj.PID]; ok && int(obj.PIndex) < len(bases) {
			n.Color = formatColor(bases[obj.PIndex].Color)
		}
		out = append(out, n)
	}
	return out, nil
}

func fromMesh(m *go3mf.Mesh) *mesh.Mesh {
	verts := make([]mgl64.Vec3, len(m.Vertices.Vertex))
	for i, v := range m.Vertices.Vertex {
		verts[i] = mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
	}
	faces := make([]mesh.Face, len(m.Triangles.Triangle))
	for i, t := range m.Triangles.Triangle {
		faces[i] = mesh.Face{int(t.V1), int(t.V2), int(t.V3)}
	}
	return mesh.New(verts, faces)
}
