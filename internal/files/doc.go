// Package files finds recording exports on disk.
//
// Discovery turns command line arguments into an ordered list of recording
// paths. Directories are expanded to the workbook and delimited exports they
// contain, sorted by name so repeated runs index recordings the same way.
//
//	d := files.NewDiscovery(cwd)
//	paths, err := d.Expand(os.Args[1:])
package files
