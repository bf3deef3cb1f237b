package engine

import "io"

// CopyChunks streams src to dst in ChunkSize pieces using a pooled buffer,
// so we don't alloc new bufs for every response.
// a write that takes less than the whole chunk is an error
func CopyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := getBuf()
	defer putBuf(buf)

	var total int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			total += int64(nw)
			if werr != nil {
				return total, werr
			}
			if nw != nr {
				return total, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
