package mesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/DataDog/zstd"

	"github.com/phil-mansfield/tesseract/lib/err"
	"github.com/phil-mansfield/tesseract/lib/fields"
)

// Restart file layout, grounded on lib/compress's magic-number/version
// header split: a fixed-width file header naming the mesh topology and
// cycle state, an offset table giving each block's byte range within the
// data blob that follows, and the data blob itself, one variable-length
// record per block.
const (
	RestartMagicNumber        = 0x7e55ad00
	RestartReverseMagicNumber = 0x00ad557e
	RestartVersion            = 1
)

// restartRegionSize mirrors RegionSize with every field widened to a
// fixed-width type, since RegionSize's Nx1/Nx2/Nx3 use the platform-native
// int that encoding/binary cannot serialize directly.
type restartRegionSize struct {
	X1Min, X1Max        float64
	X2Min, X2Max        float64
	X3Min, X3Max        float64
	Nx1, Nx2, Nx3        int32
	X1Rat, X2Rat, X3Rat float64
}

func toRestartRegionSize(rs RegionSize) restartRegionSize {
	return restartRegionSize{
		X1Min: rs.X1Min, X1Max: rs.X1Max,
		X2Min: rs.X2Min, X2Max: rs.X2Max,
		X3Min: rs.X3Min, X3Max: rs.X3Max,
		Nx1: int32(rs.Nx1), Nx2: int32(rs.Nx2), Nx3: int32(rs.Nx3),
		X1Rat: rs.X1Rat, X2Rat: rs.X2Rat, X3Rat: rs.X3Rat,
	}
}

func (r restartRegionSize) toRegionSize() RegionSize {
	return RegionSize{
		X1Min: r.X1Min, X1Max: r.X1Max,
		X2Min: r.X2Min, X2Max: r.X2Max,
		X3Min: r.X3Min, X3Max: r.X3Max,
		Nx1: int(r.Nx1), Nx2: int(r.Nx2), Nx3: int(r.Nx3),
		X1Rat: r.X1Rat, X2Rat: r.X2Rat, X3Rat: r.X3Rat,
	}
}

func toRestartBCs(bcs BoundaryTags) [6]int32 {
	var out [6]int32
	for i, bc := range bcs { out[i] = int32(bc) }
	return out
}

func fromRestartBCs(raw [6]int32) BoundaryTags {
	var out BoundaryTags
	for i, v := range raw { out[i] = BoundaryTag(v) }
	return out
}

// RestartHeader is the fixed-width portion of a restart file, written
// immediately after the magic number and version. It carries dt, the mesh's
// root region size, and its domain boundary tags, per §6: a restart file
// has to be able to rebuild the mesh topology on its own, without the
// original configuration's [mesh] section still saying the same thing.
type RestartHeader struct {
	Dim       int32
	Nrbx      [3]int64
	NCycle    int64
	Time      float64
	Dt        float64
	MeshSize  restartRegionSize
	MeshBCs   [6]int32
	NumBlocks int64
}

// Size returns the header's mesh region size in its ordinary form.
func (h RestartHeader) Size() RegionSize { return h.MeshSize.toRegionSize() }

// BCs returns the header's mesh boundary tags in their ordinary form.
func (h RestartHeader) BCs() BoundaryTags { return fromRestartBCs(h.MeshBCs) }

// RestartWriter accumulates block records and flushes them to a restart
// file, per §4.4's "Restart construction".
type RestartWriter struct {
	order    binary.ByteOrder
	compress bool
	data     bytes.Buffer
	offsets  []int64
}

// NewRestartWriter creates a writer. When compress is true, each block's
// field payload is zstd-compressed before being written, trading CPU for
// a smaller file.
func NewRestartWriter(order binary.ByteOrder, compress bool) *RestartWriter {
	return &RestartWriter{order: order, compress: compress, offsets: []int64{0}}
}

// WriteBlock appends one block's record to the writer's in-memory data
// blob: its location, cost, size, boundary tags, and field set, per §6's
// per-block restart fields.
func (w *RestartWriter) WriteBlock(
	loc LogicalLocation, cost float64, blockSize RegionSize, blockBCs BoundaryTags, fs fields.Set,
) error {
	raw, err := encodeFieldSet(w.order, fs)
	if err != nil { return err }

	payload := raw
	if w.compress {
		compressed, cerr := zstd.Compress(nil, raw)
		if cerr != nil { return fmt.Errorf("compressing block record: %w", cerr) }
		payload = compressed
	}

	if err := binary.Write(&w.data, w.order, int32(loc.Level)); err != nil { return err }
	if err := binary.Write(&w.data, w.order, [3]int64{loc.Lx1, loc.Lx2, loc.Lx3}); err != nil { return err }
	if err := binary.Write(&w.data, w.order, cost); err != nil { return err }
	if err := binary.Write(&w.data, w.order, toRestartRegionSize(blockSize)); err != nil { return err }
	if err := binary.Write(&w.data, w.order, toRestartBCs(blockBCs)); err != nil { return err }
	if err := binary.Write(&w.data, w.order, boolByte(w.compress)); err != nil { return err }
	if err := binary.Write(&w.data, w.order, uint64(len(raw))); err != nil { return err }
	if err := binary.Write(&w.data, w.order, uint64(len(payload))); err != nil { return err }
	if _, err := w.data.Write(payload); err != nil { return err }

	w.offsets = append(w.offsets, int64(w.data.Len()))
	return nil
}

func boolByte(b bool) byte {
	if b { return 1 }
	return 0
}

// Flush writes the complete restart file: magic number, version, header,
// offset table, then the accumulated data blob.
func (w *RestartWriter) Flush(
	out io.Writer, dim int, nrbx [3]int64, ncycle int64, t, dt float64,
	meshSize RegionSize, meshBCs BoundaryTags,
) error {
	if werr := binary.Write(out, w.order, uint32(RestartMagicNumber)); werr != nil { return werr }
	if werr := binary.Write(out, w.order, uint32(RestartVersion)); werr != nil { return werr }

	hd := RestartHeader{
		Dim: int32(dim), Nrbx: nrbx, NCycle: ncycle, Time: t, Dt: dt,
		MeshSize: toRestartRegionSize(meshSize), MeshBCs: toRestartBCs(meshBCs),
		NumBlocks: int64(len(w.offsets) - 1),
	}
	if werr := binary.Write(out, w.order, &hd); werr != nil { return werr }
	if werr := binary.Write(out, w.order, w.offsets); werr != nil { return werr }

	_, werr := out.Write(w.data.Bytes())
	return werr
}

// RestartReader reads back a restart file written by RestartWriter,
// reconstructing each block's location, cost, size, boundary tags, and
// field set.
type RestartReader struct {
	order   binary.ByteOrder
	Header  RestartHeader
	offsets []int64
	data    []byte
}

// OpenRestart reads and validates a restart file's header and offset
// table, leaving the data blob in memory for per-block decoding.
func OpenRestart(r io.Reader) (*RestartReader, error) {
	var magic uint32
	if rerr := binary.Read(r, binary.LittleEndian, &magic); rerr != nil {
		return nil, err.New(err.CorruptedRestart, "reading magic number: %s", rerr.Error())
	}

	order := binary.ByteOrder(binary.LittleEndian)
	switch magic {
	case RestartMagicNumber:
	case RestartReverseMagicNumber:
		order = binary.BigEndian
	default:
		return nil, err.New(err.CorruptedRestart,
			"not a restart file: magic number 0x%x does not match 0x%x or 0x%x",
			magic, RestartMagicNumber, RestartReverseMagicNumber)
	}

	var version uint32
	if rerr := binary.Read(r, order, &version); rerr != nil {
		return nil, err.New(err.CorruptedRestart, "reading version: %s", rerr.Error())
	}
	if version > RestartVersion {
		return nil, err.New(err.CorruptedRestart,
			"file was written with restart format version %d, newer than this build's %d",
			version, RestartVersion)
	}

	rd := &RestartReader{order: order}
	if rerr := binary.Read(r, order, &rd.Header); rerr != nil {
		return nil, err.New(err.CorruptedRestart, "reading header: %s", rerr.Error())
	}
	if rd.Header.NumBlocks < 0 {
		return nil, err.New(err.CorruptedRestart, "header reports %d blocks", rd.Header.NumBlocks)
	}

	rd.offsets = make([]int64, rd.Header.NumBlocks+1)
	if rerr := binary.Read(r, order, rd.offsets); rerr != nil {
		return nil, err.New(err.CorruptedRestart, "reading offset table: %s", rerr.Error())
	}

	data, rerr := io.ReadAll(r)
	if rerr != nil {
		return nil, err.New(err.CorruptedRestart, "reading data blob: %s", rerr.Error())
	}
	rd.data = data
	if int64(len(rd.data)) < rd.offsets[len(rd.offsets)-1] {
		return nil, err.New(err.CorruptedRestart,
			"data blob is %d bytes, offset table expects at least %d",
			len(rd.data), rd.offsets[len(rd.offsets)-1])
	}
	return rd, nil
}

// BlockRecord is one decoded restart record.
type BlockRecord struct {
	Loc       LogicalLocation
	Cost      float64
	BlockSize RegionSize
	BlockBCs  BoundaryTags
	Fields    fields.Set
}

// ReadBlock decodes the i-th block record.
func (rd *RestartReader) ReadBlock(i int) (BlockRecord, error) {
	if i < 0 || i >= len(rd.offsets)-1 {
		return BlockRecord{}, err.New(err.CorruptedRestart, "block index %d out of range [0,%d)", i, len(rd.offsets)-1)
	}
	buf := bytes.NewReader(rd.data[rd.offsets[i]:rd.offsets[i+1]])

	var level int32
	var lx [3]int64
	var cost float64
	var blockSize restartRegionSize
	var blockBCs [6]int32
	var compressed byte
	var rawLen, payloadLen uint64
	for _, step := range []struct {
		name string
		read func() error
	}{
		{"level", func() error { return binary.Read(buf, rd.order, &level) }},
		{"location", func() error { return binary.Read(buf, rd.order, &lx) }},
		{"cost", func() error { return binary.Read(buf, rd.order, &cost) }},
		{"block size", func() error { return binary.Read(buf, rd.order, &blockSize) }},
		{"block boundary tags", func() error { return binary.Read(buf, rd.order, &blockBCs) }},
		{"compressed flag", func() error { return binary.Read(buf, rd.order, &compressed) }},
		{"raw length", func() error { return binary.Read(buf, rd.order, &rawLen) }},
		{"payload length", func() error { return binary.Read(buf, rd.order, &payloadLen) }},
	} {
		if serr := step.read(); serr != nil {
			return BlockRecord{}, err.New(err.CorruptedRestart, "block %d %s: %s", i, step.name, serr.Error())
		}
	}

	payload := make([]byte, payloadLen)
	if _, rerr := io.ReadFull(buf, payload); rerr != nil {
		return BlockRecord{}, err.New(err.CorruptedRestart, "block %d payload: %s", i, rerr.Error())
	}

	raw := payload
	if compressed != 0 {
		decompressed, derr := zstd.Decompress(nil, payload)
		if derr != nil {
			return BlockRecord{}, err.New(err.CorruptedRestart, "block %d decompressing payload: %s", i, derr.Error())
		}
		raw = decompressed
	}
	if uint64(len(raw)) != rawLen {
		return BlockRecord{}, err.New(err.CorruptedRestart,
			"block %d decompressed to %d bytes, header expected %d", i, len(raw), rawLen)
	}

	fs, ferr := decodeFieldSet(rd.order, raw)
	if ferr != nil {
		return BlockRecord{}, err.New(err.CorruptedRestart, "block %d fields: %s", i, ferr.Error())
	}

	return BlockRecord{
		Loc:       LogicalLocation{Level: int(level), Lx1: lx[0], Lx2: lx[1], Lx3: lx[2]},
		Cost:      cost,
		BlockSize: blockSize.toRegionSize(),
		BlockBCs:  fromRestartBCs(blockBCs),
		Fields:    fs,
	}, nil
}

// encodeFieldSet serializes a field set as [count][name-len,name,data-len,data]*.
func encodeFieldSet(order binary.ByteOrder, fs fields.Set) ([]byte, error) {
	var buf bytes.Buffer
	names := fs.Names()
	if werr := binary.Write(&buf, order, uint32(len(names))); werr != nil { return nil, werr }
	for _, name := range names {
		f := fs[name]
		if werr := binary.Write(&buf, order, uint32(len(name))); werr != nil { return nil, werr }
		if _, werr := buf.WriteString(name); werr != nil { return nil, werr }
		if werr := binary.Write(&buf, order, uint32(len(f.Data))); werr != nil { return nil, werr }
		if werr := binary.Write(&buf, order, f.Data); werr != nil { return nil, werr }
	}
	return buf.Bytes(), nil
}

func decodeFieldSet(order binary.ByteOrder, raw []byte) (fields.Set, error) {
	buf := bytes.NewReader(raw)
	var nFields uint32
	if rerr := binary.Read(buf, order, &nFields); rerr != nil { return nil, rerr }

	fs := fields.NewSet()
	for i := uint32(0); i < nFields; i++ {
		var nameLen uint32
		if rerr := binary.Read(buf, order, &nameLen); rerr != nil { return nil, rerr }
		nameBytes := make([]byte, nameLen)
		if _, rerr := io.ReadFull(buf, nameBytes); rerr != nil { return nil, rerr }

		var dataLen uint32
		if rerr := binary.Read(buf, order, &dataLen); rerr != nil { return nil, rerr }
		data := make([]float64, dataLen)
		if rerr := binary.Read(buf, order, data); rerr != nil { return nil, rerr }

		fs.Add(string(nameBytes), len(data), data)
	}
	return fs, nil
}
