/*
Package logging initializes the application log.

The application log uses the logrus package:

https://github.com/sirupsen/logrus

To send messages to the application log, import logrus and use its
methods. Example:

	import log "github.com/sirupsen/logrus"

	func doSomething() {
		log.Errorf("nothing to do")
	}

During startup initialization, it is possible to redirect the log output
from the default /dev/stderr to another file, to set a prefix for every
entry, to switch to JSON formatted entries, and to set the level.

The diagnostics of a run, like references to missing objects, are logged
through the same logger, with fields identifying the application and the
missing target.
*/
package logging
