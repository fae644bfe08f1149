package scene

import (
	"archive/zip"
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"github.com/achernar/stardust/log"
)

const snapshotDataFile = "scene.bin"

var logger = log.New("scene")

// Write the scene to a compressed snapshot archive.
func WriteScene(sc *Scene, filename string) error {
	logger.Noticef(`writing compressed scene to "%s"`, filename)
	start := time.Now()

	zipFile, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	zw := zip.NewWriter(zipFile)
	defer zw.Close()

	cw, err := zw.Create(snapshotDataFile)
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(cw).Encode(sc); err != nil {
		return fmt.Errorf("scene: failed to encode snapshot: %s", err.Error())
	}

	logger.Noticef("compressed scene in %d ms", time.Since(start).Nanoseconds()/1000000)
	return nil
}

// Read a scene from a compressed snapshot archive.
func ReadScene(filename string) (*Scene, error) {
	logger.Noticef(`parsing compressed scene from "%s"`, filename)
	start := time.Now()

	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	sc := &Scene{}
	for _, f := range zr.File {
		switch f.Name {
		case snapshotDataFile:
		default:
			logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = gob.NewDecoder(rc).Decode(sc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("scene: failed to load %s: %s", f.Name, err.Error())
		}
	}

	if sc.Camera == nil {
		sc.Camera = NewCamera(45)
	}

	logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1000000)
	return sc, nil
}
