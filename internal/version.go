package internal

// Version is the lexilive release version, overridden at link time by the mage build.
var Version = "0.3.0"
